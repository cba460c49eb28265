package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	bbolt "go.etcd.io/bbolt"
)

var (
	bucketSnapshots = []byte("snapshots")

	keyToken   = []byte("token")
	keyCatalog = []byte("catalog")
)

type tokenRecord struct {
	Value    string    `json:"value"`
	IssuedAt time.Time `json:"issued_at"`
}

// SnapshotStore keeps the token and catalog snapshots in a single bbolt file.
type SnapshotStore struct {
	db *bbolt.DB
}

func Open(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot bucket: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) SaveToken(_ context.Context, token domain.Token) error {
	if err := s.put(keyToken, tokenRecord{Value: token.Value, IssuedAt: token.IssuedAt}); err != nil {
		return fmt.Errorf("save token snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) LoadToken(_ context.Context) (domain.Token, error) {
	var rec tokenRecord
	if err := s.get(keyToken, &rec); err != nil {
		return domain.Token{}, err
	}
	return domain.Token{Value: rec.Value, IssuedAt: rec.IssuedAt}, nil
}

func (s *SnapshotStore) SaveCatalog(_ context.Context, snapshot domain.CatalogSnapshot) error {
	if err := s.put(keyCatalog, snapshot); err != nil {
		return fmt.Errorf("save catalog snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) LoadCatalog(_ context.Context) (domain.CatalogSnapshot, error) {
	var snapshot domain.CatalogSnapshot
	if err := s.get(keyCatalog, &snapshot); err != nil {
		return domain.CatalogSnapshot{}, err
	}
	return snapshot, nil
}

// Ping runs an empty read transaction; it fails once the db is closed.
func (s *SnapshotStore) Ping(_ context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func (s *SnapshotStore) put(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put(key, data)
	})
}

func (s *SnapshotStore) get(key []byte, dest any) error {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketSnapshots).Get(key); v != nil {
			// v is only valid inside the transaction
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if data == nil {
		return domain.ErrSnapshotNotFound
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}
