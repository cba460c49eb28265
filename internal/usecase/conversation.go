package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ErlanBelekov/answerkey-relay/internal/command"
	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	"github.com/ErlanBelekov/answerkey-relay/internal/download"
	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
)

type CatalogFilter interface {
	Filter(c domain.Criteria) []domain.Entry
}

type SessionStore interface {
	Start(userID string, result []domain.Entry) domain.Page
	Advance(userID string, dir domain.Direction) (domain.Page, error)
	Select(userID, id string) (domain.Entry, error)
	Len() int
}

type QuotaLimiter interface {
	Limit() int
	CheckAndConsume(userID string) (remaining int, date string, err error)
	Refund(userID, date string)
}

type DocumentFetcher interface {
	Fetch(ctx context.Context, entry domain.Entry) (*download.Document, error)
}

type ReplyKind string

const (
	ReplyText     ReplyKind = "text"
	ReplyMenu     ReplyKind = "menu"
	ReplyDocument ReplyKind = "document"
)

type Button struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// Reply is what the transport renders back to the user. Document is set
// only for ReplyDocument, and the transport must Release it.
type Reply struct {
	Kind      ReplyKind
	Text      string
	Buttons   []Button
	HasPrev   bool
	HasNext   bool
	Document  *download.Document
	Remaining int
}

// ConversationUsecase drives one user's chat: searching the catalog,
// paging through results and downloading a selected answer key.
type ConversationUsecase struct {
	catalog  CatalogFilter
	sessions SessionStore
	quota    QuotaLimiter
	fetcher  DocumentFetcher
	logger   *slog.Logger
}

func NewConversationUsecase(catalog CatalogFilter, sessions SessionStore, quota QuotaLimiter, fetcher DocumentFetcher, logger *slog.Logger) *ConversationUsecase {
	return &ConversationUsecase{
		catalog:  catalog,
		sessions: sessions,
		quota:    quota,
		fetcher:  fetcher,
		logger:   logger.With("component", "conversation"),
	}
}

// HandleCommand answers a text command. Malformed input gets the usage
// example back.
func (u *ConversationUsecase) HandleCommand(ctx context.Context, userID, text string) Reply {
	cmd, err := command.Parse(text)
	if err != nil {
		u.logger.DebugContext(ctx, "invalid command", "user_id", userID, "error", err)
		return textReply(msgInvalidFormat)
	}

	switch cmd.Kind {
	case command.KindStart:
		return textReply(startText(userID))
	case command.KindHelp:
		return textReply(helpText(u.quota.Limit()))
	default:
		return u.Query(ctx, userID, cmd.Criteria)
	}
}

// Query filters the catalog and opens a new session on the first page.
// Every query replaces the previous session, even one with no matches, so
// buttons from an earlier result stop working.
func (u *ConversationUsecase) Query(ctx context.Context, userID string, c domain.Criteria) Reply {
	result := u.catalog.Filter(c)
	u.logger.InfoContext(ctx, "catalog query", "user_id", userID,
		"exam_name", c.ExamName, "exam_type", c.ExamType, "period", c.Period, "matches", len(result))

	page := u.sessions.Start(userID, result)
	metrics.ActiveSessions.Set(float64(u.sessions.Len()))

	if len(result) == 0 {
		metrics.QueriesTotal.WithLabelValues("empty").Inc()
		return textReply(msgNoResults)
	}
	metrics.QueriesTotal.WithLabelValues("match").Inc()
	return menuReply(page)
}

// HandleCallback answers a button press.
func (u *ConversationUsecase) HandleCallback(ctx context.Context, userID, data string) Reply {
	action, err := command.DecodeCallback(data)
	if err != nil {
		return textReply(msgInvalidFormat)
	}

	switch action.Kind {
	case domain.ActionPrev:
		return u.page(userID, domain.DirectionPrev)
	case domain.ActionNext:
		return u.page(userID, domain.DirectionNext)
	default:
		return u.Select(ctx, userID, action.EntryID)
	}
}

func (u *ConversationUsecase) page(userID string, dir domain.Direction) Reply {
	page, err := u.sessions.Advance(userID, dir)
	switch {
	case err == nil, errors.Is(err, domain.ErrNoPrevPage), errors.Is(err, domain.ErrNoNextPage):
		// an out-of-range press re-renders the unchanged page
		return menuReply(page)
	case errors.Is(err, domain.ErrNoSession):
		return textReply(msgNoSession)
	default:
		u.logger.Error("advance page", "user_id", userID, "error", err)
		return textReply(msgInternal)
	}
}

// Select downloads the chosen entry. The entry must belong to the user's
// current result; the lookup runs before the quota check so a stale button
// never costs a download.
func (u *ConversationUsecase) Select(ctx context.Context, userID, entryID string) Reply {
	entry, err := u.sessions.Select(userID, entryID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEntryNotFound):
			return textReply(msgNotFound)
		case errors.Is(err, domain.ErrNoSession):
			return textReply(msgNoSession)
		default:
			u.logger.ErrorContext(ctx, "select entry", "user_id", userID, "error", err)
			return textReply(msgInternal)
		}
	}

	remaining, chargedTo, err := u.quota.CheckAndConsume(userID)
	if err != nil {
		var exceeded *domain.QuotaExceededError
		if errors.As(err, &exceeded) {
			metrics.DownloadsTotal.WithLabelValues("quota_exceeded").Inc()
			return textReply(quotaExceededText(exceeded))
		}
		u.logger.ErrorContext(ctx, "check quota", "user_id", userID, "error", err)
		return textReply(msgInternal)
	}

	doc, err := u.fetcher.Fetch(ctx, entry)
	if err != nil {
		u.quota.Refund(userID, chargedTo)
		u.logger.ErrorContext(ctx, "fetch answer key", "user_id", userID, "entry_id", entry.ID, "error", err)
		return textReply(msgFetchFailed)
	}

	return Reply{
		Kind:      ReplyDocument,
		Text:      captionText(entry, remaining, u.quota.Limit()),
		Document:  doc,
		Remaining: remaining,
	}
}

func textReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

func menuReply(page domain.Page) Reply {
	buttons := make([]Button, 0, len(page.Items))
	for _, e := range page.Items {
		buttons = append(buttons, Button{Label: e.ExamName, ID: e.ID})
	}
	return Reply{
		Kind:    ReplyMenu,
		Text:    msgChooseExam,
		Buttons: buttons,
		HasPrev: page.HasPrev,
		HasNext: page.HasNext,
	}
}
