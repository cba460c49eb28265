package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
)

type SessionSweeper interface {
	Sweep() int
	Len() int
}

type QuotaSweeper interface {
	Sweep() int
}

type OrphanCleaner interface {
	CleanupOrphans(maxAge time.Duration) (int, error)
}

// Janitor periodically evicts idle sessions, stale quota counters and
// downloads that were never released.
type Janitor struct {
	sessions  SessionSweeper
	quotas    QuotaSweeper
	files     OrphanCleaner
	interval  time.Duration
	orphanAge time.Duration
	logger    *slog.Logger
}

func NewJanitor(sessions SessionSweeper, quotas QuotaSweeper, files OrphanCleaner, interval, orphanAge time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		sessions:  sessions,
		quotas:    quotas,
		files:     files,
		interval:  interval,
		orphanAge: orphanAge,
		logger:    logger.With("component", "janitor"),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", "interval", j.interval, "orphan_age", j.orphanAge)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor shut down")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one eviction pass.
func (j *Janitor) Sweep() {
	if n := j.sessions.Sweep(); n > 0 {
		metrics.JanitorEvictedTotal.WithLabelValues("session").Add(float64(n))
		j.logger.Info("evicted idle sessions", "count", n)
	}
	metrics.ActiveSessions.Set(float64(j.sessions.Len()))

	if n := j.quotas.Sweep(); n > 0 {
		metrics.JanitorEvictedTotal.WithLabelValues("quota").Add(float64(n))
		j.logger.Debug("dropped stale quota counters", "count", n)
	}

	n, err := j.files.CleanupOrphans(j.orphanAge)
	if err != nil {
		j.logger.Error("cleanup orphaned downloads", "error", err)
		return
	}
	if n > 0 {
		metrics.JanitorEvictedTotal.WithLabelValues("file").Add(float64(n))
		j.logger.Warn("removed orphaned downloads", "count", n)
	}
}
