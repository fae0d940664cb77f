package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentloop/recall-api/internal/config"
	"github.com/fluentloop/recall-api/internal/service/auth"
)

const testSecret = "test-secret-value-that-is-long-enough-0123"

func signToken(t *testing.T, userID uuid.UUID, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid": userID.String(),
		"sub": userID.String(),
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestMiddleware(t *testing.T) *AuthMiddleware {
	t.Helper()
	verifier, err := auth.NewTokenVerifier(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return NewAuthMiddleware(verifier)
}

func TestAuthenticateValidToken(t *testing.T) {
	t.Parallel()
	m := newTestMiddleware(t)
	userID := uuid.New()

	var gotUserID uuid.UUID
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, found = GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/reviews/queue", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, userID, gotUserID)
}

func TestAuthenticateRejections(t *testing.T) {
	t.Parallel()
	m := newTestMiddleware(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for rejected requests")
	})

	testCases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + signToken(t, uuid.New(), time.Now().Add(-time.Hour))},
		{
			"wrong signing key",
			"Bearer " + func() string {
				claims := jwt.MapClaims{
					"uid": uuid.NewString(),
					"exp": time.Now().Add(time.Hour).Unix(),
				}
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
				signed, _ := token.SignedString([]byte("another-secret-that-is-also-long-enough"))
				return signed
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reviews/queue", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			m.Authenticate(next).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestGetUserIDAbsent(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, found := GetUserID(req.WithContext(context.Background()))
	assert.False(t, found)
}
