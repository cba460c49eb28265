package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
	"github.com/ErlanBelekov/answerkey-relay/internal/notify"
	"github.com/robfig/cron/v3"
)

// TokenRunner runs a provider call with a valid token. Satisfied by
// *token.Manager.
type TokenRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context, t domain.Token) error) error
}

type CatalogSource interface {
	ListCatalog(ctx context.Context, accessToken string) ([]domain.Entry, error)
}

type CatalogStore interface {
	Replace(entries []domain.Entry, syncedAt time.Time)
	Len() int
}

type CatalogSnapshots interface {
	SaveCatalog(ctx context.Context, snapshot domain.CatalogSnapshot) error
	LoadCatalog(ctx context.Context) (domain.CatalogSnapshot, error)
}

type SyncerConfig struct {
	// Schedule is a standard cron expression or descriptor, e.g. "@every 1h".
	Schedule   string
	Backoff    time.Duration
	AlertAfter int
}

// Syncer keeps the catalog store in step with the provider.
type Syncer struct {
	tokens    TokenRunner
	source    CatalogSource
	store     CatalogStore
	snapshots CatalogSnapshots
	alerter   notify.Alerter
	logger    *slog.Logger
	now       func() time.Time

	schedule   cron.Schedule
	backoff    time.Duration
	alertAfter int

	// only touched by the loop goroutine
	failures int
}

func NewSyncer(
	tokens TokenRunner,
	source CatalogSource,
	store CatalogStore,
	snapshots CatalogSnapshots,
	alerter notify.Alerter,
	cfg SyncerConfig,
	logger *slog.Logger,
) (*Syncer, error) {
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", cfg.Schedule, err)
	}
	return &Syncer{
		tokens:     tokens,
		source:     source,
		store:      store,
		snapshots:  snapshots,
		alerter:    alerter,
		logger:     logger.With("component", "syncer"),
		now:        time.Now,
		schedule:   sched,
		backoff:    cfg.Backoff,
		alertAfter: cfg.AlertAfter,
	}, nil
}

// Start loads the catalog snapshot, then syncs until ctx is done. After a
// successful cycle it waits for the next schedule tick; after a failed one
// it waits the fixed backoff.
func (s *Syncer) Start(ctx context.Context) {
	s.WarmStart(ctx)

	s.logger.Info("syncer started", "backoff", s.backoff)

	for {
		wait := s.backoff
		if err := s.RunCycle(ctx); err == nil {
			now := s.now()
			wait = s.schedule.Next(now).Sub(now)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("syncer shut down")
			return
		case <-timer.C:
		}
	}
}

// WarmStart installs the persisted catalog if the store is still empty.
func (s *Syncer) WarmStart(ctx context.Context) {
	if s.store.Len() > 0 {
		return
	}
	snap, err := s.snapshots.LoadCatalog(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			s.logger.WarnContext(ctx, "load catalog snapshot", "error", err)
		}
		return
	}
	s.store.Replace(snap.Entries, snap.SyncedAt)
	metrics.CatalogEntries.Set(float64(len(snap.Entries)))
	s.logger.InfoContext(ctx, "catalog snapshot loaded", "entries", len(snap.Entries), "synced_at", snap.SyncedAt)
}

// RunCycle fetches the full catalog once. On failure the store keeps the
// previous catalog.
func (s *Syncer) RunCycle(ctx context.Context) error {
	start := s.now()

	var entries []domain.Entry
	err := s.tokens.Do(ctx, func(ctx context.Context, t domain.Token) error {
		var err error
		entries, err = s.source.ListCatalog(ctx, t.Value)
		return err
	})
	metrics.SyncCycleDuration.Observe(s.now().Sub(start).Seconds())

	if err != nil {
		metrics.SyncCyclesTotal.WithLabelValues("failure").Inc()
		s.failures++
		s.logger.ErrorContext(ctx, "catalog sync failed", "error", err, "consecutive_failures", s.failures)
		if s.failures == s.alertAfter {
			s.sendAlert(ctx, err)
		}
		return err
	}

	syncedAt := s.now()
	s.store.Replace(entries, syncedAt)
	s.failures = 0

	metrics.SyncCyclesTotal.WithLabelValues("success").Inc()
	metrics.CatalogEntries.Set(float64(len(entries)))
	metrics.CatalogSyncedTimestamp.Set(float64(syncedAt.Unix()))

	if err := s.snapshots.SaveCatalog(ctx, domain.CatalogSnapshot{Entries: entries, SyncedAt: syncedAt}); err != nil {
		s.logger.WarnContext(ctx, "persist catalog snapshot", "error", err)
	}

	s.logger.InfoContext(ctx, "catalog synced", "entries", len(entries), "duration", s.now().Sub(start))
	return nil
}

func (s *Syncer) sendAlert(ctx context.Context, cause error) {
	subject := fmt.Sprintf("answer-key catalog sync failing (%d cycles)", s.failures)
	body := fmt.Sprintf("The last %d catalog sync cycles failed. Last error: %v", s.failures, cause)
	if err := s.alerter.Alert(ctx, subject, body); err != nil {
		s.logger.ErrorContext(ctx, "send sync alert", "error", err)
	}
}
