package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

// SnapshotRepository keeps snapshots for the life of the process only.
// Used when SNAPSHOT_DRIVER=none and by tests.
type SnapshotRepository struct {
	mu      sync.Mutex
	token   *domain.Token
	catalog *domain.CatalogSnapshot
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

func (r *SnapshotRepository) SaveToken(_ context.Context, token domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = &token
	return nil
}

func (r *SnapshotRepository) LoadToken(_ context.Context) (domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == nil {
		return domain.Token{}, domain.ErrSnapshotNotFound
	}
	return *r.token, nil
}

func (r *SnapshotRepository) SaveCatalog(_ context.Context, snapshot domain.CatalogSnapshot) error {
	snapshot.Entries = slices.Clone(snapshot.Entries)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = &snapshot
	return nil
}

func (r *SnapshotRepository) LoadCatalog(_ context.Context) (domain.CatalogSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog == nil {
		return domain.CatalogSnapshot{}, domain.ErrSnapshotNotFound
	}
	out := *r.catalog
	out.Entries = slices.Clone(out.Entries)
	return out, nil
}

func (r *SnapshotRepository) Ping(_ context.Context) error { return nil }

func (r *SnapshotRepository) Close() error { return nil }
