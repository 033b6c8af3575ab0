package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// WorkerRunner launches the classification worker as a separate OS process
// so a worker fault cannot corrupt scheduler state, and supervises its
// shutdown: graceful SIGTERM first, forced kill after the grace period.
type WorkerRunner struct {
	binary string
	grace  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	current *exec.Cmd
	done    chan struct{}
}

// NewWorkerRunner supervises the given worker binary.
func NewWorkerRunner(binary string, grace time.Duration, logger *slog.Logger) *WorkerRunner {
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &WorkerRunner{binary: binary, grace: grace, logger: logger}
}

// Run starts one worker process and waits for it to finish. The subprocess
// inherits the environment so the worker reads the same configuration.
func (r *WorkerRunner) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(r.binary)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker %s: %w", r.binary, err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.current = cmd
	r.done = done
	r.mu.Unlock()

	r.logger.Info("worker started", "pid", cmd.Process.Pid)
	err := cmd.Wait()
	close(done)

	r.mu.Lock()
	r.current = nil
	r.done = nil
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("worker exited: %w", err)
	}
	r.logger.Info("worker finished", "pid", cmd.Process.Pid)
	return nil
}

// Shutdown asks a running worker to terminate gracefully and escalates to a
// forced kill after the grace period. A call with no worker running is a
// no-op.
func (r *WorkerRunner) Shutdown() {
	r.mu.Lock()
	cmd := r.current
	done := r.done
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	r.logger.Info("stopping running worker", "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		r.logger.Warn("failed to signal worker", "error", err)
		return
	}

	select {
	case <-done:
	case <-time.After(r.grace):
		r.logger.Warn("worker did not exit in time, forcing kill", "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-done
	}
}
