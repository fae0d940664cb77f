package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fluentloop/recall-api/internal/service/auth"
	"github.com/fluentloop/recall-api/internal/service/review"
	"github.com/fluentloop/recall-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, review.ErrItemNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, review.ErrItemNotFound),
		errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, store.ErrLogEntryNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, review.ErrConcurrentModification),
		errors.Is(err, store.ErrConcurrentModification):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, review.ErrInvalidQuality),
		errors.Is(err, review.ErrInvalidLimit),
		errors.Is(err, review.ErrInvalidPreviewDays),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Storage outage
	case errors.Is(err, store.ErrTransactionFailed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	// Authorization errors
	case errors.Is(err, review.ErrItemNotOwned):
		return "You do not own this item"

	// Not found errors
	case errors.Is(err, review.ErrItemNotFound),
		errors.Is(err, store.ErrItemNotFound):
		return "Review item not found"

	case errors.Is(err, store.ErrLogEntryNotFound):
		return "Review log entry not found"

	// Conflict errors
	case errors.Is(err, review.ErrConcurrentModification),
		errors.Is(err, store.ErrConcurrentModification):
		return "Item was modified by another request; please retry"

	// Bad request errors
	case errors.Is(err, review.ErrInvalidQuality):
		return "Quality must be one of 1, 2, 3 or 5"

	case errors.Is(err, review.ErrInvalidLimit):
		return "Limit must be a positive integer"

	case errors.Is(err, review.ErrInvalidPreviewDays):
		return "Days must be a positive integer"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Storage outage
	case errors.Is(err, store.ErrTransactionFailed):
		return "Storage temporarily unavailable; please retry"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'SubmitReviewRequest.Quality' Error:Field
		// validation for 'Quality' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt":
		return "must be greater than the minimum"
	default:
		return "validation failed"
	}
}
