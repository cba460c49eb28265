package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Both tables hold a single row (id = 1); every save overwrites it.
const schema = `
CREATE TABLE IF NOT EXISTS token_snapshots (
	id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	value      TEXT        NOT NULL,
	issued_at  TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS catalog_snapshots (
	id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	entries    JSONB       NOT NULL,
	synced_at  TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Migrate creates the snapshot tables if they do not exist.
func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create snapshot tables: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) SaveToken(ctx context.Context, token domain.Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO token_snapshots (id, value, issued_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, issued_at = EXCLUDED.issued_at, updated_at = NOW()`,
		token.Value, token.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("save token snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) LoadToken(ctx context.Context) (domain.Token, error) {
	var t domain.Token
	err := r.pool.QueryRow(ctx, `SELECT value, issued_at FROM token_snapshots WHERE id = 1`).Scan(&t.Value, &t.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, domain.ErrSnapshotNotFound
		}
		return domain.Token{}, fmt.Errorf("load token snapshot: %w", err)
	}
	return t, nil
}

func (r *SnapshotRepository) SaveCatalog(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	entries, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO catalog_snapshots (id, entries, synced_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET entries = EXCLUDED.entries, synced_at = EXCLUDED.synced_at, updated_at = NOW()`,
		entries, snapshot.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("save catalog snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) LoadCatalog(ctx context.Context) (domain.CatalogSnapshot, error) {
	var (
		raw      []byte
		snapshot domain.CatalogSnapshot
	)
	err := r.pool.QueryRow(ctx, `SELECT entries, synced_at FROM catalog_snapshots WHERE id = 1`).Scan(&raw, &snapshot.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CatalogSnapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.CatalogSnapshot{}, fmt.Errorf("load catalog snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &snapshot.Entries); err != nil {
		return domain.CatalogSnapshot{}, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *SnapshotRepository) Close() error {
	r.pool.Close()
	return nil
}
