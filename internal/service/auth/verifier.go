package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/config"
	"github.com/fluentloop/recall-api/internal/platform/logger"
)

// TokenVerifier validates access tokens issued by the platform's identity
// service and extracts the authenticated user ID.
type TokenVerifier interface {
	// VerifyToken validates the provided access token string.
	// Returns the user ID the token was issued for, or an error if
	// validation fails (expired, invalid signature, etc.).
	VerifyToken(ctx context.Context, tokenString string) (uuid.UUID, error)
}

// hmacTokenVerifier validates tokens signed with HMAC-SHA256.
type hmacTokenVerifier struct {
	signingKey []byte
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration
}

// tokenClaims defines the structure of JWT claims we accept.
type tokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

var _ TokenVerifier = (*hmacTokenVerifier)(nil)

// NewTokenVerifier creates a TokenVerifier that checks HMAC-SHA256 signatures
// with the shared secret from the auth configuration.
func NewTokenVerifier(cfg config.AuthConfig) (TokenVerifier, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &hmacTokenVerifier{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute, // tolerate minor clock drift between services
	}, nil
}

// VerifyToken parses and validates an access token, returning the user ID.
func (v *hmacTokenVerifier) VerifyToken(
	ctx context.Context,
	tokenString string,
) (uuid.UUID, error) {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return uuid.Nil, ErrMissingToken
	}

	now := v.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return uuid.Nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid", "error", err)
			return uuid.Nil, ErrTokenNotYetValid
		default:
			log.Debug("token validation failed",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
			return uuid.Nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		log.Debug("token validation failed: missing user ID claim")
		return uuid.Nil, ErrInvalidToken
	}

	return claims.UserID, nil
}
