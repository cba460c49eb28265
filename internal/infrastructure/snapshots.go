package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/answerkey-relay/config"
	"github.com/ErlanBelekov/answerkey-relay/internal/infrastructure/bolt"
	"github.com/ErlanBelekov/answerkey-relay/internal/infrastructure/memory"
	"github.com/ErlanBelekov/answerkey-relay/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/answerkey-relay/internal/repository"
)

// OpenSnapshots returns the snapshot repository selected by SNAPSHOT_DRIVER.
// The caller owns it and must Close it.
func OpenSnapshots(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.SnapshotRepository, error) {
	switch cfg.SnapshotDriver {
	case "bolt":
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		logger.Info("snapshot store opened", "driver", "bolt", "path", cfg.BoltPath)
		return store, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		repo := postgres.NewSnapshotRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("snapshot store opened", "driver", "postgres")
		return repo, nil

	default:
		logger.Info("snapshot store disabled, state is kept in memory only")
		return memory.NewSnapshotRepository(), nil
	}
}
