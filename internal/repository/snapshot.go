package repository

import (
	"context"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

// SnapshotRepository persists the warm-restart state: the last provider
// token and the last synced catalog. Load methods return
// domain.ErrSnapshotNotFound when nothing has been saved yet.
type SnapshotRepository interface {
	SaveToken(ctx context.Context, token domain.Token) error
	LoadToken(ctx context.Context) (domain.Token, error)
	SaveCatalog(ctx context.Context, snapshot domain.CatalogSnapshot) error
	LoadCatalog(ctx context.Context) (domain.CatalogSnapshot, error)
	Ping(ctx context.Context) error
	Close() error
}
