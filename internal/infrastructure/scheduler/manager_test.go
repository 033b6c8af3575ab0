package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	m := NewManager(discardLogger())
	job := m.wrapJob(context.Background(), "slow", func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job()
	}()

	<-started
	// Second tick while the first is still running: skipped, not queued.
	job()
	close(release)
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("expected 1 run, got %d", got)
	}
}

func TestSequentialTicksBothRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	m := NewManager(discardLogger())
	job := m.wrapJob(context.Background(), "fast", func(context.Context) error {
		runs.Add(1)
		return nil
	})

	job()
	job()

	if got := runs.Load(); got != 2 {
		t.Fatalf("expected 2 runs, got %d", got)
	}
}

func TestJobErrorDoesNotStickTheGuard(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	m := NewManager(discardLogger())
	job := m.wrapJob(context.Background(), "failing", func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})

	job()
	job()

	if got := runs.Load(); got != 2 {
		t.Fatalf("a failing run must release the guard, got %d runs", got)
	}
}

func TestAddRejectsBadSpec(t *testing.T) {
	t.Parallel()

	m := NewManager(discardLogger())
	if err := m.Add(context.Background(), "bad", "not a cron spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestWorkerRunnerMissingBinary(t *testing.T) {
	t.Parallel()

	r := NewWorkerRunner("/nonexistent/worker-binary", time.Second, discardLogger())
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestWorkerRunnerCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewWorkerRunner("true", time.Second, discardLogger())
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWorkerRunnerShutdownWithoutWorker(t *testing.T) {
	t.Parallel()

	r := NewWorkerRunner("true", time.Second, discardLogger())
	// Must not panic or block when nothing is running.
	r.Shutdown()
}
