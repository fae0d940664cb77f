package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fluentloop/recall-api/internal/api"
	"github.com/fluentloop/recall-api/internal/config"
	"github.com/fluentloop/recall-api/internal/domain/sm2"
	"github.com/fluentloop/recall-api/internal/platform/postgres"
	"github.com/fluentloop/recall-api/internal/service/analytics"
	"github.com/fluentloop/recall-api/internal/service/auth"
	"github.com/fluentloop/recall-api/internal/service/milestones"
	"github.com/fluentloop/recall-api/internal/service/review"
	"github.com/fluentloop/recall-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db *sql.DB

	itemStore  store.ReviewItemStore
	ledger     store.ReviewLogStore
	transactor store.Transactor

	reviewService review.ReviewService
	analyzer      *analytics.Analyzer
	tracker       *milestones.Tracker
	verifier      auth.TokenVerifier

	reviewHandler    *api.ReviewHandler
	analyticsHandler *api.AnalyticsHandler
}

// newApplication wires all application dependencies from configuration.
// It opens the database connection and builds the store, service, and
// handler layers bottom-up.
func newApplication(cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := openDatabase(cfg.Database.URL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	itemStore := postgres.NewPostgresReviewItemStore(db, log)
	ledger := postgres.NewPostgresReviewLogStore(db, log)
	transactor := store.NewTransactor(db)

	sm2Service := sm2.NewDefaultService()
	reviewService := review.NewReviewService(itemStore, ledger, transactor, sm2Service, log)
	analyzer := analytics.NewAnalyzer(itemStore, ledger, log)
	tracker := milestones.NewTracker(itemStore, ledger, log)

	verifier, err := auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		closeQuietly(db, log)
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	reviewHandler := api.NewReviewHandler(
		reviewService,
		cfg.Review.DefaultQueueLimit,
		cfg.Review.MaxQueueLimit,
		cfg.Review.MaxPreviewDays,
		log,
	)
	analyticsHandler := api.NewAnalyticsHandler(analyzer, tracker, log)

	return &application{
		config:           cfg,
		logger:           log,
		db:               db,
		itemStore:        itemStore,
		ledger:           ledger,
		transactor:       transactor,
		reviewService:    reviewService,
		analyzer:         analyzer,
		tracker:          tracker,
		verifier:         verifier,
		reviewHandler:    reviewHandler,
		analyticsHandler: analyticsHandler,
	}, nil
}

// openDatabase opens and verifies a PostgreSQL connection pool.
func openDatabase(url string, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db, log)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("failed to close database connection", "error", err)
	}
}
