package scheduler_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
	"github.com/ErlanBelekov/answerkey-relay/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSessions struct{ evict, live int }

func (f *fakeSessions) Sweep() int { return f.evict }
func (f *fakeSessions) Len() int   { return f.live }

type fakeQuotas struct{ swept int }

func (f *fakeQuotas) Sweep() int { f.swept++; return 0 }

type fakeFiles struct {
	removed int
	err     error
	maxAge  time.Duration
}

func (f *fakeFiles) CleanupOrphans(maxAge time.Duration) (int, error) {
	f.maxAge = maxAge
	return f.removed, f.err
}

func TestJanitor_Sweep_RecordsEvictions(t *testing.T) {
	sessions := &fakeSessions{evict: 2, live: 7}
	quotas := &fakeQuotas{}
	files := &fakeFiles{removed: 1}
	j := scheduler.NewJanitor(sessions, quotas, files, time.Minute, time.Hour, discard())

	sessionsBefore := testutil.ToFloat64(metrics.JanitorEvictedTotal.WithLabelValues("session"))
	filesBefore := testutil.ToFloat64(metrics.JanitorEvictedTotal.WithLabelValues("file"))

	j.Sweep()

	if got := testutil.ToFloat64(metrics.JanitorEvictedTotal.WithLabelValues("session")) - sessionsBefore; got != 2 {
		t.Errorf("session evictions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.JanitorEvictedTotal.WithLabelValues("file")) - filesBefore; got != 1 {
		t.Errorf("file evictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ActiveSessions); got != 7 {
		t.Errorf("active sessions = %v, want 7", got)
	}
	if quotas.swept != 1 {
		t.Errorf("quota sweeps = %d, want 1", quotas.swept)
	}
	if files.maxAge != time.Hour {
		t.Errorf("orphan age = %s, want 1h", files.maxAge)
	}
}

func TestJanitor_Sweep_CleanupErrorDoesNotPanic(t *testing.T) {
	j := scheduler.NewJanitor(&fakeSessions{}, &fakeQuotas{}, &fakeFiles{err: errors.New("permission denied")}, time.Minute, time.Hour, discard())
	j.Sweep()
}
