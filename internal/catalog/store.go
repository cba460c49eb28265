package catalog

import (
	"cmp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

// indexed pairs an entry with its pre-normalized fields.
type indexed struct {
	entry    domain.Entry
	name     string
	examType string
	period   string
}

type snapshot struct {
	items    []indexed
	syncedAt time.Time
}

// Store holds the last synced catalog. Replace swaps in a new snapshot
// atomically, so Filter never observes a partially written catalog.
type Store struct {
	current atomic.Pointer[snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&snapshot{})
	return s
}

// Replace installs entries as the new catalog. The slice is copied.
func (s *Store) Replace(entries []domain.Entry, syncedAt time.Time) {
	items := make([]indexed, len(entries))
	for i, e := range entries {
		items[i] = indexed{
			entry:    e,
			name:     Normalize(e.ExamName),
			examType: Normalize(e.ExamType),
			period:   Normalize(e.Period),
		}
	}
	s.current.Store(&snapshot{items: items, syncedAt: syncedAt})
}

func (s *Store) Len() int {
	return len(s.current.Load().items)
}

// SyncedAt is the zero time until the first Replace.
func (s *Store) SyncedAt() time.Time {
	return s.current.Load().syncedAt
}

// Snapshot returns a copy of the current catalog in sync order.
func (s *Store) Snapshot() []domain.Entry {
	snap := s.current.Load()
	out := make([]domain.Entry, len(snap.items))
	for i, it := range snap.items {
		out[i] = it.entry
	}
	return out
}

// Filter returns the entries matching every non-empty criterion, sorted by
// normalized exam name. A criterion matches when its normalized form is a
// substring of the entry's normalized field.
func (s *Store) Filter(c domain.Criteria) []domain.Entry {
	snap := s.current.Load()
	name, examType, period := Normalize(c.ExamName), Normalize(c.ExamType), Normalize(c.Period)

	matched := make([]indexed, 0)
	for _, it := range snap.items {
		if !strings.Contains(it.name, name) ||
			!strings.Contains(it.examType, examType) ||
			!strings.Contains(it.period, period) {
			continue
		}
		matched = append(matched, it)
	}

	slices.SortStableFunc(matched, func(a, b indexed) int {
		if n := cmp.Compare(a.name, b.name); n != 0 {
			return n
		}
		return cmp.Compare(a.entry.ID, b.entry.ID)
	})

	out := make([]domain.Entry, len(matched))
	for i, it := range matched {
		out[i] = it.entry
	}
	return out
}
