package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Alerter tells the operator that something needs attention.
type Alerter interface {
	Alert(ctx context.Context, subject, body string) error
}

// LogAlerter logs alerts instead of sending them. Used in ENV=local and
// when no recipient is configured.
type LogAlerter struct {
	logger *slog.Logger
}

func (a *LogAlerter) Alert(_ context.Context, subject, body string) error {
	a.logger.Warn("operator alert", "subject", subject, "body", body)
	return nil
}

// ResendAlerter e-mails alerts through the Resend API.
type ResendAlerter struct {
	client *resend.Client
	from   string
	to     string
}

func (a *ResendAlerter) Alert(ctx context.Context, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    a.from,
		To:      []string{a.to},
		Subject: subject,
		Text:    body,
	}
	if _, err := a.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

// NewAlerter returns a LogAlerter for ENV=local or an empty recipient,
// ResendAlerter otherwise.
func NewAlerter(env, apiKey, from, to string, logger *slog.Logger) Alerter {
	if env == "local" || to == "" {
		return &LogAlerter{logger: logger.With("component", "alerts")}
	}
	return &ResendAlerter{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}
