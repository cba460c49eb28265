package notify_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/ErlanBelekov/answerkey-relay/internal/notify"
)

func TestNewAlerter_LocalLogsInsteadOfSending(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	a := notify.NewAlerter("local", "", "", "ops@example.com", logger)
	if _, ok := a.(*notify.LogAlerter); !ok {
		t.Fatalf("want *LogAlerter, got %T", a)
	}
	if err := a.Alert(context.Background(), "sync failing", "3 cycles"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "sync failing") {
		t.Errorf("alert not logged: %s", buf.String())
	}
}

func TestNewAlerter_NoRecipientFallsBackToLog(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	a := notify.NewAlerter("production", "re_key", "bot@example.com", "", logger)
	if _, ok := a.(*notify.LogAlerter); !ok {
		t.Errorf("want *LogAlerter, got %T", a)
	}
}

func TestNewAlerter_ProductionUsesResend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	a := notify.NewAlerter("production", "re_key", "bot@example.com", "ops@example.com", logger)
	if _, ok := a.(*notify.ResendAlerter); !ok {
		t.Errorf("want *ResendAlerter, got %T", a)
	}
}
