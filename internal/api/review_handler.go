// Package api provides HTTP handlers for the API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/api/shared"
	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/platform/logger"
	"github.com/fluentloop/recall-api/internal/service/review"
)

// ReviewItemResponse represents the response data for a review item
type ReviewItemResponse struct {
	ID             string     `json:"id"`
	ContentRef     string     `json:"content_ref"`
	EaseFactor     float64    `json:"ease_factor"`
	Repetition     int        `json:"repetition"`
	IntervalDays   float64    `json:"interval_days"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt   time.Time  `json:"next_review_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FlagItemRequest represents the request body for flagging content for review
type FlagItemRequest struct {
	ContentRef string `json:"content_ref" validate:"required,max=512"`
}

// SubmitReviewRequest represents the request body for completing a review
type SubmitReviewRequest struct {
	Quality        int    `json:"quality"         validate:"required,oneof=1 2 3 5"`
	DurationMs     int    `json:"duration_ms"     validate:"omitempty,gte=0"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=128"`
}

// SubmitReviewResponse carries the scheduling outcome of a completed review
type SubmitReviewResponse struct {
	Item       ReviewItemResponse `json:"item"`
	NextReview time.Time          `json:"next_review_at"`
	Interval   float64            `json:"new_interval_days"`
	Repetition int                `json:"new_repetition"`
	EaseFactor float64            `json:"ease_factor"`
	Replayed   bool               `json:"replayed"`
}

// QueueResponse wraps a list of review items
type QueueResponse struct {
	Items []ReviewItemResponse `json:"items"`
	Count int                  `json:"count"`
}

// ItemHistoryResponse is the full ledger trace for one item
type ItemHistoryResponse struct {
	Item       ReviewItemResponse  `json:"item"`
	Entries    []ReviewLogResponse `json:"entries"`
	Consistent bool                `json:"consistent"`
}

// ReviewLogResponse represents one ledger entry
type ReviewLogResponse struct {
	ID               string    `json:"id"`
	Quality          int       `json:"quality"`
	ReviewedAt       time.Time `json:"reviewed_at"`
	IntervalAtReview float64   `json:"interval_at_review"`
	DurationMs       int       `json:"duration_ms"`
}

// ReviewHandler handles review-related HTTP requests
type ReviewHandler struct {
	reviewService review.ReviewService
	defaultLimit  int
	maxLimit      int
	maxDays       int
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(
	reviewService review.ReviewService,
	defaultLimit, maxLimit, maxDays int,
	logger *slog.Logger,
) *ReviewHandler {
	if reviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reviewService cannot be nil for ReviewHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReviewHandler")
	}

	return &ReviewHandler{
		reviewService: reviewService,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		maxDays:       maxDays,
		logger:        logger.With(slog.String("component", "review_handler")),
	}
}

// FlagItem handles POST /items requests.
// It flags a content unit for spaced review, creating a review item due
// immediately. Flagging the same content ref twice returns the existing item.
func (h *ReviewHandler) FlagItem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req FlagItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode flag item request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	item, err := h.reviewService.FlagItem(r.Context(), userID, req.ContentRef)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("flagged item for review",
		slog.String("user_id", userID.String()),
		slog.String("item_id", item.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, itemToResponse(item))
}

// SubmitReview handles POST /reviews/{id}/complete requests.
// It applies the scheduling transition for one completed review and appends
// the attempt to the review ledger in the same transaction.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	itemID, ok := parseItemID(w, r, log)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("failed to decode review submission", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	outcome, err := h.reviewService.SubmitReview(r.Context(), userID, itemID, review.ReviewSubmission{
		Quality:        domain.ReviewQuality(req.Quality),
		DurationMs:     req.DurationMs,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("review submitted",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("quality", req.Quality),
		slog.Bool("replayed", outcome.Replayed))

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitReviewResponse{
		Item:       itemToResponse(outcome.Item),
		NextReview: outcome.Item.NextReviewAt,
		Interval:   outcome.Item.IntervalDays,
		Repetition: outcome.Item.Repetition,
		EaseFactor: outcome.Item.EaseFactor,
		Replayed:   outcome.Replayed,
	})
}

// DueQueue handles GET /reviews/queue requests.
// It returns the user's due items, oldest due first.
func (h *ReviewHandler) DueQueue(w http.ResponseWriter, r *http.Request) {
	h.serveQueue(w, r, h.reviewService.DueQueue)
}

// PracticeQueue handles GET /reviews/practice requests.
// The practice queue is read-only: completing a practice round never
// touches the schedule or the ledger.
func (h *ReviewHandler) PracticeQueue(w http.ResponseWriter, r *http.Request) {
	h.serveQueue(w, r, h.reviewService.PracticeQueue)
}

func (h *ReviewHandler) serveQueue(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(context.Context, uuid.UUID, int) ([]*domain.ReviewItem, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	limit, err := h.parseLimit(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Limit must be a positive integer")
		return
	}

	items, err := fetch(r.Context(), userID, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemsToQueueResponse(items))
}

// Stats handles GET /reviews/stats requests.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	stats, err := h.reviewService.Stats(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// SchedulePreview handles GET /reviews/schedule requests.
// The optional `days` query parameter bounds the preview horizon.
func (h *ReviewHandler) SchedulePreview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	days := h.maxDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Days must be a positive integer")
			return
		}
		days = parsed
	}
	if days > h.maxDays {
		days = h.maxDays
	}

	schedule, err := h.reviewService.SchedulePreview(r.Context(), userID, days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"days":     days,
		"schedule": schedule,
	})
}

// ItemHistory handles GET /reviews/{id}/history requests.
// It returns the item's full ledger trace and whether the materialized
// state is reproducible from it.
func (h *ReviewHandler) ItemHistory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	itemID, ok := parseItemID(w, r, log)
	if !ok {
		return
	}

	history, err := h.reviewService.ItemHistory(r.Context(), userID, itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	entries := make([]ReviewLogResponse, len(history.Entries))
	for i, entry := range history.Entries {
		entries[i] = ReviewLogResponse{
			ID:               entry.ID.String(),
			Quality:          int(entry.Quality),
			ReviewedAt:       entry.ReviewedAt,
			IntervalAtReview: entry.IntervalAtReview,
			DurationMs:       entry.DurationMs,
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ItemHistoryResponse{
		Item:       itemToResponse(history.Item),
		Entries:    entries,
		Consistent: history.Consistent,
	})
}

// parseLimit reads the optional `limit` query parameter, applying the
// configured default and ceiling.
func (h *ReviewHandler) parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit, nil
}

// requireUserID extracts the authenticated user ID set by the auth
// middleware, responding 401 when it is missing.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// parseItemID extracts and parses the {id} URL parameter.
func parseItemID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		log.Warn("item ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Item ID is required")
		return uuid.Nil, false
	}

	itemID, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid item ID format", slog.String("item_id", raw))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid item ID format")
		return uuid.Nil, false
	}
	return itemID, true
}

// itemToResponse transforms a domain review item into its API shape.
// LastReviewedAt is omitted for items never reviewed.
func itemToResponse(item *domain.ReviewItem) ReviewItemResponse {
	resp := ReviewItemResponse{
		ID:           item.ID.String(),
		ContentRef:   item.ContentRef,
		EaseFactor:   item.EaseFactor,
		Repetition:   item.Repetition,
		IntervalDays: item.IntervalDays,
		NextReviewAt: item.NextReviewAt,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	if !item.LastReviewedAt.IsZero() {
		lastReviewed := item.LastReviewedAt
		resp.LastReviewedAt = &lastReviewed
	}
	return resp
}

func itemsToQueueResponse(items []*domain.ReviewItem) QueueResponse {
	responses := make([]ReviewItemResponse, len(items))
	for i, item := range items {
		responses[i] = itemToResponse(item)
	}
	return QueueResponse{Items: responses, Count: len(responses)}
}
