// The avworker binary claims and classifies one batch of pending articles,
// then exits. The scheduler daemon spawns it so a worker crash cannot take
// the schedulers down. Exit code is non-zero on run-level failure; the next
// scheduled tick is the recovery mechanism.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"AVInsights/internal/config"
	"AVInsights/internal/infrastructure/llm"
	"AVInsights/internal/infrastructure/storage"
	"AVInsights/internal/logging"
	"AVInsights/internal/relevance"
	"AVInsights/internal/usecase"
	"AVInsights/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	out := logger.New("ai-worker")
	out.Printf("started pid=%d", os.Getpid())

	slogger := logging.New(cfg.Logging.Level)

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		out.Printf("fatal: open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	store := storage.NewPostgresStore(db, slogger.With("component", "storage"))
	worker := usecase.NewWorker(usecase.WorkerDeps{
		Store:    store,
		Analyzer: llm.NewOpenAIClient(cfg.AI, slogger.With("component", "llm")),
		Matcher:  relevance.NewMatcher(relevance.DefaultTerms),
		Logger:   slogger.With("component", "worker"),
	}, cfg.AI)

	// SIGTERM from the supervising scheduler cancels in-flight work.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := worker.RunBatch(ctx)
	if err != nil {
		out.Printf("fatal: %v", err)
		os.Exit(1)
	}

	out.Printf("finished batch claimed=%d done=%d skipped=%d errors=%d",
		summary.Claimed, summary.Done, summary.Skipped, summary.Errored)
}
