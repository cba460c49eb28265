// sync runs one catalog sync and writes the token and catalog snapshots,
// so a fresh deployment can start with a warm catalog.
// Run: go run ./cmd/sync
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/config"
	"github.com/ErlanBelekov/answerkey-relay/internal/catalog"
	"github.com/ErlanBelekov/answerkey-relay/internal/infrastructure"
	ctxlog "github.com/ErlanBelekov/answerkey-relay/internal/log"
	"github.com/ErlanBelekov/answerkey-relay/internal/notify"
	"github.com/ErlanBelekov/answerkey-relay/internal/provider"
	"github.com/ErlanBelekov/answerkey-relay/internal/scheduler"
	"github.com/ErlanBelekov/answerkey-relay/internal/token"
	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.SnapshotDriver == "none" {
		log.Fatal("SNAPSHOT_DRIVER=none: nothing to write")
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := infrastructure.OpenSnapshots(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("snapshots: %v", err)
	}
	defer snapshots.Close()

	client := provider.NewClient(cfg.ProviderBaseURL, provider.Credentials{
		Tenant:   cfg.ProviderTenant,
		Username: cfg.ProviderUsername,
		Password: cfg.ProviderPassword,
	}, cfg.ProviderTimeout, logger)
	tokens := token.NewManager(client, snapshots, cfg.TokenRefreshInterval, logger)
	if err := tokens.Load(ctx); err != nil {
		logger.Warn("token snapshot unavailable", "error", err)
	}

	store := catalog.NewStore()
	syncer, err := scheduler.NewSyncer(tokens, client, store, snapshots, notify.NewAlerter("local", "", "", "", logger), scheduler.SyncerConfig{
		Schedule:   cfg.SyncSchedule,
		Backoff:    cfg.SyncFailureBackoff,
		AlertAfter: 1,
	}, logger)
	if err != nil {
		log.Fatalf("syncer: %v", err)
	}

	if err := syncer.RunCycle(ctx); err != nil {
		snapshots.Close()
		log.Fatalf("sync: %v", err)
	}

	logger.Info("catalog snapshot written", "entries", store.Len(), "driver", cfg.SnapshotDriver)
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
