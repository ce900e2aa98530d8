// Package worker runs the cache janitor: a cron-scheduled sweep that
// removes expired and corrupt cache entries, plus its health server.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner is the cache as seen by the janitor.
type Cleaner interface {
	// Cleanup removes expired entries and returns how many it removed.
	Cleanup() int
}

// Janitor sweeps a cache on a schedule.
type Janitor struct {
	cache   Cleaner
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger

	running atomic.Bool
}

// NewJanitor creates a janitor. metrics may be nil.
func NewJanitor(cache Cleaner, timeout time.Duration, metrics *Metrics, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{cache: cache, timeout: timeout, metrics: metrics, logger: logger}
}

// RunOnce performs one sweep bounded by the janitor timeout. Overlapping
// runs are skipped. It returns the number of entries removed.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("cache cleanup skipped, previous run still in progress")
		return 0, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	done := make(chan int, 1)
	go func() {
		defer j.running.Store(false)
		done <- j.cache.Cleanup()
	}()

	select {
	case removed := <-done:
		elapsed := time.Since(start)
		j.record(true, elapsed, removed)
		j.logger.Info("cache cleanup completed",
			slog.Int("removed", removed),
			slog.Duration("duration", elapsed))
		return removed, nil
	case <-ctx.Done():
		j.record(false, time.Since(start), 0)
		j.logger.Error("cache cleanup did not finish in time", slog.Duration("timeout", j.timeout))
		return 0, fmt.Errorf("cache cleanup: %w", ctx.Err())
	}
}

func (j *Janitor) record(success bool, elapsed time.Duration, removed int) {
	if j.metrics != nil {
		j.metrics.RecordRun(success, elapsed.Seconds(), removed)
	}
}

// Schedule registers the sweep on a new cron scheduler. The caller starts
// and stops the returned scheduler.
func (j *Janitor) Schedule(ctx context.Context, schedule string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, func() {
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("add cleanup job: %w", err)
	}
	return c, nil
}
