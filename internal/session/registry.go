package session

import (
	"sync"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

type entry struct {
	session   domain.Session
	touchedAt time.Time
}

// Registry keeps one browsing session per user. A single lock serializes
// all calls, so one user's page moves apply in the order they arrive.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Start replaces the user's session with result, positioned on page 0.
func (r *Registry) Start(userID string, result []domain.Entry) domain.Page {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{
		session:   domain.Session{UserID: userID, Result: result, PageIndex: 0},
		touchedAt: r.now(),
	}
	r.sessions[userID] = e
	return pageOf(e.session)
}

func (r *Registry) Page(userID string) (domain.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(userID)
	if err != nil {
		return domain.Page{}, err
	}
	return pageOf(e.session), nil
}

// Advance moves one page in dir. Moving past either end is rejected and
// leaves the position unchanged.
func (r *Registry) Advance(userID string, dir domain.Direction) (domain.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(userID)
	if err != nil {
		return domain.Page{}, err
	}

	current := pageOf(e.session)
	switch dir {
	case domain.DirectionPrev:
		if !current.HasPrev {
			return current, domain.ErrNoPrevPage
		}
		e.session.PageIndex--
	case domain.DirectionNext:
		if !current.HasNext {
			return current, domain.ErrNoNextPage
		}
		e.session.PageIndex++
	}
	return pageOf(e.session), nil
}

// Select finds id anywhere in the user's result, not only on the current page.
func (r *Registry) Select(userID, id string) (domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookup(userID)
	if err != nil {
		return domain.Entry{}, err
	}
	for _, item := range e.session.Result {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.Entry{}, domain.ErrEntryNotFound
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and reports how many.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for id, e := range r.sessions {
		if e.touchedAt.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) lookup(userID string) (*entry, error) {
	e, ok := r.sessions[userID]
	if !ok {
		return nil, domain.ErrNoSession
	}
	e.touchedAt = r.now()
	return e, nil
}

func pageOf(s domain.Session) domain.Page {
	total := len(s.Result)
	start := min(s.PageIndex*domain.PageSize, total)
	end := min(start+domain.PageSize, total)

	return domain.Page{
		Items:      s.Result[start:end:end],
		Index:      s.PageIndex,
		TotalPages: (total + domain.PageSize - 1) / domain.PageSize,
		Total:      total,
		HasPrev:    s.PageIndex > 0,
		HasNext:    end < total,
	}
}
