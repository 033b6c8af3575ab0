package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"AVInsights/internal/config"
	"AVInsights/internal/fulltext"
	"AVInsights/internal/infrastructure/feed"
	"AVInsights/internal/infrastructure/scheduler"
	"AVInsights/internal/infrastructure/storage"
	"AVInsights/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	ingester *usecase.Ingester
	runner   *scheduler.WorkerRunner
	manager  *scheduler.Manager
}

// New builds the scheduler daemon: ingestion runs in-process, classification
// runs as a supervised worker subprocess.
func New(cfg config.Config, logger *slog.Logger) (*Application, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := storage.NewPostgresStore(db, logger.With("component", "storage"))

	registry := feed.NewRegistry()
	registry.Register(feed.NewRSSFetcher(cfg.Fulltext.UserAgent))

	extractor := fulltext.New(nil, cfg.Fulltext, logger.With("component", "fulltext"))

	ingester := usecase.NewIngester(usecase.IngesterDeps{
		Sources:   store,
		Articles:  store,
		Audit:     store,
		Fetchers:  registry,
		Extractor: extractor,
		Logger:    logger.With("component", "ingester"),
	}, cfg.Fulltext, cfg.Ingest.SourceType)

	runner := scheduler.NewWorkerRunner(
		cfg.Scheduler.WorkerBinary,
		cfg.Scheduler.ShutdownGrace,
		logger.With("component", "worker-runner"),
	)

	return &Application{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		ingester: ingester,
		runner:   runner,
		manager:  scheduler.NewManager(logger.With("component", "scheduler")),
	}, nil
}

// Run starts both periodic triggers and blocks until a termination signal.
// On shutdown future ticks stop, a running worker subprocess is terminated
// gracefully, and in-flight ingestion is given a bounded window to finish.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.manager.Add(ctx, "ingest", a.cfg.Scheduler.IngestCron, a.ingester.IngestAll); err != nil {
		return err
	}
	if err := a.manager.Add(ctx, "classify", a.cfg.Scheduler.ClassifyCron, a.runner.Run); err != nil {
		return err
	}

	if a.cfg.Scheduler.RunOnStartup {
		if err := a.ingester.IngestAll(ctx); err != nil {
			a.logger.Error("startup ingestion failed", "error", err)
		}
		if err := a.runner.Run(ctx); err != nil {
			a.logger.Error("startup worker run failed", "error", err)
		}
	}

	a.manager.Start()
	a.logger.Info("schedulers started",
		"ingest_cron", a.cfg.Scheduler.IngestCron,
		"classify_cron", a.cfg.Scheduler.ClassifyCron)

	<-ctx.Done()
	a.logger.Info("shutdown signal received")

	a.runner.Shutdown()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Scheduler.ShutdownGrace)
	defer cancel()
	a.manager.Stop(stopCtx)

	return a.db.Close()
}
