package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	apiMiddleware "github.com/fluentloop/recall-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.verifier)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// All review endpoints require authentication.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Item flagging
			r.Post("/items", app.reviewHandler.FlagItem)

			// Review scheduling endpoints
			r.Get("/reviews/queue", app.reviewHandler.DueQueue)
			r.Get("/reviews/practice", app.reviewHandler.PracticeQueue)
			r.Post("/reviews/{id}/complete", app.reviewHandler.SubmitReview)
			r.Get("/reviews/{id}/history", app.reviewHandler.ItemHistory)
			r.Get("/reviews/stats", app.reviewHandler.Stats)
			r.Get("/reviews/schedule", app.reviewHandler.SchedulePreview)

			// Analytics endpoints
			r.Get("/reviews/memory-curve", app.analyticsHandler.MemoryCurve)
			r.Get("/reviews/milestones", app.analyticsHandler.Milestones)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
