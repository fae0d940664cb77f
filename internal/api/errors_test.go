package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluentloop/recall-api/internal/service/auth"
	"github.com/fluentloop/recall-api/internal/service/review"
	"github.com/fluentloop/recall-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"item not owned", review.ErrItemNotOwned, http.StatusForbidden},
		{"item not found", review.ErrItemNotFound, http.StatusNotFound},
		{"store item not found", store.ErrItemNotFound, http.StatusNotFound},
		{"concurrent modification", review.ErrConcurrentModification, http.StatusConflict},
		{"invalid quality", review.ErrInvalidQuality, http.StatusBadRequest},
		{"invalid limit", review.ErrInvalidLimit, http.StatusBadRequest},
		{"transaction failed", store.ErrTransactionFailed, http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{
			"wrapped service error keeps its mapping",
			fmt.Errorf("submit: %w", review.ErrConcurrentModification),
			http.StatusConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessageNeverLeaksDetails(t *testing.T) {
	t.Parallel()

	internal := errors.New("pq: connection refused host=10.0.0.5 user=admin")
	msg := GetSafeErrorMessage(internal)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "10.0.0.5")

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Quality must be one of 1, 2, 3 or 5", GetSafeErrorMessage(review.ErrInvalidQuality))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := errors.New(
		"Key: 'SubmitReviewRequest.Quality' Error:Field validation for 'Quality' failed on the 'oneof' tag",
	)
	assert.Equal(t, "Invalid Quality: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("boom")))
}
