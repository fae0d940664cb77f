package api

import (
	"log/slog"
	"net/http"

	"github.com/fluentloop/recall-api/internal/api/shared"
	"github.com/fluentloop/recall-api/internal/platform/logger"
	"github.com/fluentloop/recall-api/internal/service/analytics"
	"github.com/fluentloop/recall-api/internal/service/milestones"
)

// AnalyticsHandler handles retention-analytics and milestone HTTP requests
type AnalyticsHandler struct {
	analyzer *analytics.Analyzer
	tracker  *milestones.Tracker
	logger   *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(
	analyzer *analytics.Analyzer,
	tracker *milestones.Tracker,
	logger *slog.Logger,
) *AnalyticsHandler {
	if analyzer == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("analyzer cannot be nil for AnalyticsHandler")
	}
	if tracker == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tracker cannot be nil for AnalyticsHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AnalyticsHandler")
	}

	return &AnalyticsHandler{
		analyzer: analyzer,
		tracker:  tracker,
		logger:   logger.With(slog.String("component", "analytics_handler")),
	}
}

// MemoryCurve handles GET /reviews/memory-curve requests.
// A user with no review history gets a valid payload with null retention
// rates and status "no_review_history", not an error.
func (h *AnalyticsHandler) MemoryCurve(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	curve, err := h.analyzer.MemoryCurve(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, curve)
}

// Milestones handles GET /reviews/milestones requests.
func (h *AnalyticsHandler) Milestones(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	report, err := h.tracker.Report(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}
