// Package scheduler drives the two periodic triggers: in-process feed
// ingestion and the classification worker subprocess.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// Manager owns the cron entries. Every job carries its own overlap guard:
// a tick that finds the previous run still active is skipped, not queued.
type Manager struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewManager builds a manager using standard five-field cron specs.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{cron: cron.New(), logger: logger}
}

// Add registers a named periodic job. The guard state is owned here, per
// job, never package-level.
func (m *Manager) Add(ctx context.Context, name, spec string, run func(context.Context) error) error {
	if _, err := m.cron.AddFunc(spec, m.wrapJob(ctx, name, run)); err != nil {
		return fmt.Errorf("add job %s (%q): %w", name, spec, err)
	}
	return nil
}

func (m *Manager) wrapJob(ctx context.Context, name string, run func(context.Context) error) func() {
	var running atomic.Bool

	return func() {
		if !running.CompareAndSwap(false, true) {
			m.logger.Info("previous run still in progress, skipping tick", "job", name)
			return
		}
		defer running.Store(false)

		m.logger.Info("job tick", "job", name)
		if err := run(ctx); err != nil {
			m.logger.Error("job failed", "job", name, "error", err)
		}
	}
}

// Start begins ticking in the background.
func (m *Manager) Start() {
	m.cron.Start()
}

// Stop halts future ticks and waits for in-flight jobs, bounded by ctx.
func (m *Manager) Stop(ctx context.Context) {
	stopped := m.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		m.logger.Warn("scheduler stop timed out with jobs still running")
	}
}
