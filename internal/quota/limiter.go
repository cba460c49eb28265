package quota

import (
	"sync"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

const dateLayout = "2006-01-02"

// Limiter enforces the per-user daily download cap. A "day" is a calendar
// day in loc.
type Limiter struct {
	limit int
	loc   *time.Location
	now   func() time.Time

	mu     sync.Mutex
	quotas map[string]*domain.DownloadQuota
}

func NewLimiter(limit int, loc *time.Location) *Limiter {
	return &Limiter{
		limit:  limit,
		loc:    loc,
		now:    time.Now,
		quotas: make(map[string]*domain.DownloadQuota),
	}
}

// WithClock replaces the time source. Used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Limit() int {
	return l.limit
}

// CheckAndConsume takes one download from the user's allowance and returns
// what is left plus the local date it was charged to. When nothing is left
// it returns *domain.QuotaExceededError.
func (l *Limiter) CheckAndConsume(userID string) (int, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().In(l.loc)
	q := l.current(userID, now)
	if q.Count >= l.limit {
		return 0, q.Date, &domain.QuotaExceededError{Limit: l.limit, ResetIn: untilMidnight(now)}
	}
	q.Count++
	return l.limit - q.Count, q.Date, nil
}

// Refund gives back one download charged to date, used when the fetch that
// consumed it failed. A refund for a day that has already rolled over is
// dropped; the new day's allowance is untouched.
func (l *Limiter) Refund(userID, date string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.current(userID, l.now().In(l.loc))
	if q.Date != date {
		return
	}
	if q.Count > 0 {
		q.Count--
	}
}

// Remaining reports the user's allowance without consuming it.
func (l *Limiter) Remaining(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.limit - l.current(userID, l.now().In(l.loc)).Count
}

// Sweep drops quota records from previous days; they would be reset on
// next use anyway.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.now().In(l.loc).Format(dateLayout)
	evicted := 0
	for id, q := range l.quotas {
		if q.Date != today {
			delete(l.quotas, id)
			evicted++
		}
	}
	return evicted
}

// current returns the user's record for now's date, resetting a record
// left over from an earlier day.
func (l *Limiter) current(userID string, now time.Time) *domain.DownloadQuota {
	today := now.Format(dateLayout)
	q, ok := l.quotas[userID]
	if !ok {
		q = &domain.DownloadQuota{UserID: userID, Date: today}
		l.quotas[userID] = q
	}
	if q.Date != today {
		q.Date = today
		q.Count = 0
	}
	return q
}

func untilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Sub(now)
}
