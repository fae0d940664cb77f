// Package main implements the entry point for the recall API server,
// which schedules spaced-repetition reviews of flagged vocabulary and
// serves retention analytics over the review ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/fluentloop/recall-api/internal/config"
	"github.com/fluentloop/recall-api/internal/platform/logger"
)

func main() {
	skipMigrations := flag.Bool("skip-migrations", false, "do not apply database migrations on startup")
	flag.Parse()

	app, err := initializeApp(*skipMigrations)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(context.Background(), router); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, applies migrations,
// and wires the application dependencies.
func initializeApp(skipMigrations bool) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	if skipMigrations {
		appLogger.Info("Skipping database migrations")
	} else {
		if err := runMigrations(app.db, appLogger); err != nil {
			app.cleanup()
			return nil, err
		}
	}

	return app, nil
}
