package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Review   ReviewConfig   `mapstructure:"review" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains token verification settings. Tokens are issued by
// the platform's identity service; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// ReviewConfig contains scheduling and queue settings.
type ReviewConfig struct {
	// DefaultQueueLimit caps queue responses when the client sends no limit.
	DefaultQueueLimit int `mapstructure:"default_queue_limit" validate:"required,gt=0"`
	// MaxQueueLimit is the hard ceiling for client-supplied limits.
	MaxQueueLimit int `mapstructure:"max_queue_limit" validate:"required,gt=0"`
	// MaxPreviewDays caps the schedule preview horizon.
	MaxPreviewDays int `mapstructure:"max_preview_days" validate:"required,gt=0"`
}
