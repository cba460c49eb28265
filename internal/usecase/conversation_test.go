package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/catalog"
	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	"github.com/ErlanBelekov/answerkey-relay/internal/download"
	"github.com/ErlanBelekov/answerkey-relay/internal/quota"
	"github.com/ErlanBelekov/answerkey-relay/internal/session"
	"github.com/ErlanBelekov/answerkey-relay/internal/usecase"
)

// ---- fakes ----

type fakeFetcher struct {
	dir     string
	calls   []string
	failing bool
}

func (f *fakeFetcher) Fetch(_ context.Context, e domain.Entry) (*download.Document, error) {
	f.calls = append(f.calls, e.ID)
	if f.failing {
		return nil, fmt.Errorf("resolve document %s: %w", e.ID, domain.ErrFetch)
	}
	path := filepath.Join(f.dir, "answer-key-"+e.ID+".pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o600); err != nil {
		return nil, err
	}
	return &download.Document{Path: path, FileName: download.FileName(e), Size: 4}, nil
}

// ---- helpers ----

const user = "1001"

func entries(n int) []domain.Entry {
	out := make([]domain.Entry, n)
	for i := range out {
		out[i] = domain.Entry{
			ID:       fmt.Sprintf("%d", i+1),
			ExamName: fmt.Sprintf("ÖZDEBİR TYT %02d", i+1),
			ExamType: "TYT",
			Period:   "2024-2025",
		}
	}
	return out
}

type fixture struct {
	uc      *usecase.ConversationUsecase
	fetcher *fakeFetcher
	limiter *quota.Limiter
}

func newFixture(t *testing.T, catalogEntries []domain.Entry, limit int) fixture {
	t.Helper()
	store := catalog.NewStore()
	store.Replace(catalogEntries, time.Now())

	fetcher := &fakeFetcher{dir: t.TempDir()}
	limiter := quota.NewLimiter(limit, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	uc := usecase.NewConversationUsecase(store, session.NewRegistry(time.Hour), limiter, fetcher, logger)
	return fixture{uc: uc, fetcher: fetcher, limiter: limiter}
}

// ---- commands ----

func TestHandleCommand_StartAndHelp(t *testing.T) {
	f := newFixture(t, entries(1), 10)

	start := f.uc.HandleCommand(context.Background(), user, "/start")
	if start.Kind != usecase.ReplyText || !strings.Contains(start.Text, user) {
		t.Errorf("start reply = %+v", start)
	}

	help := f.uc.HandleCommand(context.Background(), user, "/aciklama")
	if help.Kind != usecase.ReplyText || !strings.Contains(help.Text, "Günlük indirme limitiniz: 10 dosya") {
		t.Errorf("help reply = %+v", help)
	}
}

func TestHandleCommand_InvalidFormat(t *testing.T) {
	f := newFixture(t, entries(1), 10)

	got := f.uc.HandleCommand(context.Background(), user, "/cevap Özdebir")
	if got.Kind != usecase.ReplyText || !strings.HasPrefix(got.Text, "Geçersiz format") {
		t.Errorf("reply = %+v", got)
	}
}

func TestHandleCommand_QueryNoResults(t *testing.T) {
	f := newFixture(t, entries(3), 10)

	got := f.uc.HandleCommand(context.Background(), user, "/cevap -tür AYT")
	if got.Kind != usecase.ReplyText || got.Text != "Belirttiğiniz kriterlere uygun sonuç bulunamadı." {
		t.Errorf("reply = %+v", got)
	}
}

// ---- paging ----

func TestPaging_TwentyFiveEntries(t *testing.T) {
	f := newFixture(t, entries(25), 10)
	ctx := context.Background()

	first := f.uc.HandleCommand(ctx, user, "/cevap -sınav özdebir -tür tyt -dönem 2024-2025")
	if first.Kind != usecase.ReplyMenu || len(first.Buttons) != 10 || first.HasPrev || !first.HasNext {
		t.Fatalf("first page = %+v", first)
	}
	if first.Buttons[0].ID != "1" {
		t.Errorf("first button = %+v", first.Buttons[0])
	}

	// prev on the first page re-renders it
	again := f.uc.HandleCallback(ctx, user, "prev")
	if again.Kind != usecase.ReplyMenu || again.Buttons[0].ID != "1" {
		t.Errorf("prev on first page = %+v", again)
	}

	f.uc.HandleCallback(ctx, user, "next")
	last := f.uc.HandleCallback(ctx, user, "next")
	if len(last.Buttons) != 5 || !last.HasPrev || last.HasNext {
		t.Fatalf("last page = %+v", last)
	}

	stay := f.uc.HandleCallback(ctx, user, "next")
	if len(stay.Buttons) != 5 || stay.Buttons[0].ID != "21" {
		t.Errorf("next on last page = %+v", stay)
	}
}

func TestPaging_NoSession(t *testing.T) {
	f := newFixture(t, entries(3), 10)

	got := f.uc.HandleCallback(context.Background(), user, "next")
	if got.Kind != usecase.ReplyText || !strings.Contains(got.Text, "/cevap") {
		t.Errorf("reply = %+v", got)
	}
}

// ---- selection ----

func TestSelect_DeliversDocumentAndConsumesQuota(t *testing.T) {
	f := newFixture(t, entries(25), 10)
	ctx := context.Background()
	f.uc.HandleCommand(ctx, user, "/cevap -tür TYT")

	// entry 23 is on page 3 but selectable from page 1
	got := f.uc.HandleCallback(ctx, user, "23")
	if got.Kind != usecase.ReplyDocument || got.Document == nil {
		t.Fatalf("reply = %+v", got)
	}
	defer got.Document.Release()

	want := "(2024-2025) ÖZDEBİR TYT 23\n\nKalan indirme hakkı: 9/10"
	if got.Text != want {
		t.Errorf("caption = %q, want %q", got.Text, want)
	}
	if got.Remaining != 9 || f.limiter.Remaining(user) != 9 {
		t.Errorf("remaining = %d, limiter = %d", got.Remaining, f.limiter.Remaining(user))
	}
}

func TestSelect_StaleIDDoesNotConsumeQuota(t *testing.T) {
	f := newFixture(t, entries(5), 10)
	ctx := context.Background()
	f.uc.HandleCommand(ctx, user, "/cevap -tür TYT")

	got := f.uc.HandleCallback(ctx, user, "999")
	if got.Text != "Seçilen sınav bulunamadı." {
		t.Errorf("reply = %+v", got)
	}
	if len(f.fetcher.calls) != 0 || f.limiter.Remaining(user) != 10 {
		t.Errorf("fetch calls = %v, remaining = %d", f.fetcher.calls, f.limiter.Remaining(user))
	}
}

func TestSelect_FetchFailureRefundsQuota(t *testing.T) {
	f := newFixture(t, entries(5), 10)
	f.fetcher.failing = true
	ctx := context.Background()
	f.uc.HandleCommand(ctx, user, "/cevap -tür TYT")

	got := f.uc.HandleCallback(ctx, user, "2")
	if got.Kind != usecase.ReplyText || got.Text != "Cevap anahtarı indirilemedi. Lütfen tekrar deneyin." {
		t.Errorf("reply = %+v", got)
	}
	if f.limiter.Remaining(user) != 10 {
		t.Errorf("remaining = %d, want 10", f.limiter.Remaining(user))
	}
}

func TestSelect_QuotaExceeded(t *testing.T) {
	f := newFixture(t, entries(5), 2)
	ctx := context.Background()
	f.uc.HandleCommand(ctx, user, "/cevap -tür TYT")

	for _, id := range []string{"1", "2"} {
		r := f.uc.HandleCallback(ctx, user, id)
		if r.Kind != usecase.ReplyDocument {
			t.Fatalf("download %s: reply = %+v", id, r)
		}
		r.Document.Release()
	}

	got := f.uc.HandleCallback(ctx, user, "3")
	if got.Kind != usecase.ReplyText || !strings.HasPrefix(got.Text, "Günlük indirme limitiniz dolmuştur (2/2).") {
		t.Errorf("reply = %+v", got)
	}
	if !strings.Contains(got.Text, "saat") || !strings.Contains(got.Text, "dakika") {
		t.Errorf("reply lacks reset time: %q", got.Text)
	}
	if len(f.fetcher.calls) != 2 {
		t.Errorf("fetch calls = %v, want 2", f.fetcher.calls)
	}
}

func TestSelect_AfterEmptyQuery_PreviousResultIsGone(t *testing.T) {
	f := newFixture(t, entries(5), 10)
	ctx := context.Background()

	first := f.uc.HandleCommand(ctx, user, "/cevap -sınav ÖZDEBİR")
	if first.Kind != usecase.ReplyMenu {
		t.Fatalf("first query reply = %+v", first)
	}
	empty := f.uc.HandleCommand(ctx, user, "/cevap -sınav NOPE")
	if empty.Text != "Belirttiğiniz kriterlere uygun sonuç bulunamadı." {
		t.Fatalf("second query reply = %+v", empty)
	}

	got := f.uc.HandleCallback(ctx, user, "1")
	if got.Kind != usecase.ReplyText || got.Text != "Seçilen sınav bulunamadı." {
		t.Errorf("reply = %+v", got)
	}
	if len(f.fetcher.calls) != 0 || f.limiter.Remaining(user) != 10 {
		t.Errorf("fetch calls = %v, remaining = %d", f.fetcher.calls, f.limiter.Remaining(user))
	}

	// paging an empty result stays on the empty page
	if r := f.uc.HandleCallback(ctx, user, "next"); r.Kind != usecase.ReplyMenu || len(r.Buttons) != 0 || r.HasNext {
		t.Errorf("next on empty result = %+v", r)
	}
}
