package catalog_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/catalog"
	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
)

var fixture = []domain.Entry{
	{ID: "1", ExamName: "Özdebir TYT Deneme 2", ExamType: "TYT", Period: "2024-2025"},
	{ID: "2", ExamName: "Bilgi Sarmalı TYT", ExamType: "TYT", Period: "2024-2025"},
	{ID: "3", ExamName: "ÖZDEBİR AYT", ExamType: "AYT", Period: "2024-2025"},
	{ID: "4", ExamName: "özdebir tyt deneme 1", ExamType: "TYT", Period: "2023-2024"},
	{ID: "5", ExamName: "Limit LGS", ExamType: "LGS", Period: "2024-2025"},
	{ID: "6", ExamName: "OZDEBIR TYT DENEME 1", ExamType: "TYT", Period: "2024-2025"},
}

func newStore(entries []domain.Entry) *catalog.Store {
	s := catalog.NewStore()
	s.Replace(entries, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return s
}

func ids(entries []domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestFilter_AllCriteriaMustMatch(t *testing.T) {
	s := newStore(fixture)

	got := s.Filter(domain.Criteria{ExamName: "özdebir", ExamType: "tyt", Period: "2024-2025"})

	want := []string{"6", "1"} // DENEME 1 sorts before DENEME 2
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestFilter_EmptyCriteriaMatchesEverythingSorted(t *testing.T) {
	s := newStore(fixture)

	got := s.Filter(domain.Criteria{})

	// BILGI, LIMIT, OZDEBIR AYT, OZDEBIR TYT DENEME 1 (ids 4, 6 by id), OZDEBIR TYT DENEME 2
	want := []string{"2", "5", "3", "4", "6", "1"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestFilter_CriteriaCommute(t *testing.T) {
	s := newStore(fixture)
	full := domain.Criteria{ExamName: "OZDEBIR", ExamType: "TYT", Period: "2024"}

	combined := ids(s.Filter(full))

	// narrowing one criterion at a time, in any order, lands on the same set
	orders := [][]domain.Criteria{
		{{ExamName: full.ExamName}, {ExamType: full.ExamType}, {Period: full.Period}},
		{{Period: full.Period}, {ExamName: full.ExamName}, {ExamType: full.ExamType}},
		{{ExamType: full.ExamType}, {Period: full.Period}, {ExamName: full.ExamName}},
	}
	for _, order := range orders {
		current := fixture
		for _, c := range order {
			current = newStore(current).Filter(c)
		}
		if fmt.Sprint(ids(current)) != fmt.Sprint(combined) {
			t.Errorf("order %v gave %v, want %v", order, ids(current), combined)
		}
	}

	for _, e := range s.Filter(full) {
		if catalog.Normalize(e.ExamType) != "TYT" {
			t.Errorf("entry %s has type %q", e.ID, e.ExamType)
		}
	}
}

func TestFilter_NoMatch_ReturnsEmpty(t *testing.T) {
	s := newStore(fixture)

	got := s.Filter(domain.Criteria{ExamName: "yok böyle bir yayın"})
	if len(got) != 0 {
		t.Errorf("expected no results, got %v", ids(got))
	}
}

func TestReplace_CopiesInput(t *testing.T) {
	entries := append([]domain.Entry(nil), fixture...)
	s := newStore(entries)

	entries[0].ExamName = "mutated"

	if s.Snapshot()[0].ExamName != fixture[0].ExamName {
		t.Error("store shares memory with the caller's slice")
	}
}

func TestStore_EmptyBeforeFirstReplace(t *testing.T) {
	s := catalog.NewStore()
	if s.Len() != 0 || !s.SyncedAt().IsZero() {
		t.Errorf("len = %d, synced_at = %v", s.Len(), s.SyncedAt())
	}
	if got := s.Filter(domain.Criteria{}); len(got) != 0 {
		t.Errorf("filter on empty store = %v", got)
	}
}

func TestReplace_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	small := fixture[:2]
	large := fixture

	s := newStore(small)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				s.Replace(large, time.Now())
			} else {
				s.Replace(small, time.Now())
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			n := len(s.Filter(domain.Criteria{}))
			if n != len(small) && n != len(large) {
				t.Errorf("observed partial catalog of %d entries", n)
				return
			}
		}
	}()

	wg.Wait()
}
