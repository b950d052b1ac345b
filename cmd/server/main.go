package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"schedex/internal/auth"
	"schedex/internal/config"
	"schedex/internal/handler"
	"schedex/internal/logging"
	"schedex/internal/notify/noop"
	sesnotify "schedex/internal/notify/ses"
	"schedex/internal/pipeline"
	"schedex/internal/port"
	"schedex/internal/repository/memory"
	"schedex/internal/repository/postgres"
	"schedex/internal/router"
	"schedex/internal/service"
	"schedex/internal/similarity"
	"schedex/internal/similarity/claude"
	s3storage "schedex/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	// Register remote similarity providers
	similarity.RegisterProvider("claude", func(c *config.SimilarityConfig) (port.SimilarityScorer, error) {
		return claude.NewScorer(c), nil
	})
	scorer, err := similarity.NewScorer(&cfg.Similarity)
	if err != nil {
		return fmt.Errorf("failed to initialize similarity scorer: %w", err)
	}
	deps := pipeline.Deps{}
	if scorer != nil {
		defer scorer.Close()
		deps.Scorer = scorer
	}

	// Initialize repositories
	var (
		reports port.ReportRepository
		pinger  handler.Pinger
	)
	switch cfg.Store.Backend {
	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		deps.Store = postgres.NewMappingStore(db)
		reports = postgres.NewReportRepo(db)
		pinger = db
	default:
		deps.Store = memory.NewMappingStore()
		reports = memory.NewReportRepo()
	}

	// Initialize storage
	var storage port.ObjectStorage
	if cfg.S3.Enabled {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	// Initialize notifier
	var notifier port.RunNotifier
	switch cfg.Email.Provider {
	case "ses":
		notifier, err = sesnotify.NewSESNotifier(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.NotifyAddress)
		if err != nil {
			return fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
	default:
		notifier = noop.NewNoopNotifier()
	}

	// Initialize services
	pipe := pipeline.New(&cfg.Pipeline, deps)
	tokens := auth.NewTokenService(cfg.JWT)
	runSvc := service.NewRunService(pipe, reports, storage, notifier, &cfg.S3)

	// Initialize handlers
	runH := handler.NewRunHandler(runSvc)
	healthH := handler.NewHealthHandler(pinger)

	r := router.Setup(tokens, cfg.CORS.AllowedOrigins, runH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on %s (store=%s, similarity=%s)", cfg.Server.Port, cfg.Store.Backend, cfg.Similarity.Provider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
