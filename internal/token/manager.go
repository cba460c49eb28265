package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/answerkey-relay/internal/domain"
	"github.com/ErlanBelekov/answerkey-relay/internal/metrics"
)

// Authenticator performs one credential exchange with the provider.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Persister stores the token so a restart can skip logging in again.
type Persister interface {
	SaveToken(ctx context.Context, token domain.Token) error
	LoadToken(ctx context.Context) (domain.Token, error)
}

// Manager is the only owner of the provider token. All reads and writes go
// through mu, so concurrent callers holding a stale token trigger a single
// authentication.
type Manager struct {
	auth            Authenticator
	store           Persister
	refreshInterval time.Duration
	logger          *slog.Logger
	now             func() time.Time

	mu      sync.Mutex
	current domain.Token
}

func NewManager(auth Authenticator, store Persister, refreshInterval time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		auth:            auth,
		store:           store,
		refreshInterval: refreshInterval,
		logger:          logger.With("component", "token_manager"),
		now:             time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Load installs the persisted token, if any. A missing snapshot is not an
// error. A stale snapshot is still loaded; EnsureValid will replace it.
func (m *Manager) Load(ctx context.Context) error {
	t, err := m.store.LoadToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			m.logger.Info("no token snapshot, will authenticate on first use")
			return nil
		}
		return fmt.Errorf("load token snapshot: %w", err)
	}

	m.mu.Lock()
	m.current = t
	m.mu.Unlock()

	m.logger.Info("token snapshot loaded", "issued_at", t.IssuedAt, "fresh", t.Fresh(m.now(), m.refreshInterval))
	return nil
}

// Current returns the installed token without checking freshness.
func (m *Manager) Current() domain.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Authenticate(ctx context.Context) (domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticateLocked(ctx)
}

// EnsureValid returns the current token while it is fresh and
// authenticates otherwise.
func (m *Manager) EnsureValid(ctx context.Context) (domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Fresh(m.now(), m.refreshInterval) {
		return m.current, nil
	}
	m.logger.Info("token stale, refreshing", "issued_at", m.current.IssuedAt)
	return m.authenticateLocked(ctx)
}

// ForceReauthenticate discards the current token's standing and logs in
// again. Callers use it after the provider rejected a request.
func (m *Manager) ForceReauthenticate(ctx context.Context) (domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Warn("token rejected by provider, forcing re-authentication")
	return m.authenticateLocked(ctx)
}

// Do runs fn with a valid token. If fn reports domain.ErrUnauthorized the
// token is refreshed once and fn runs once more; a second rejection is
// returned as domain.ErrFetch.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, t domain.Token) error) error {
	t, err := m.EnsureValid(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, t)
	if !errors.Is(err, domain.ErrUnauthorized) {
		return err
	}

	t, err = m.replaceRejected(ctx, t)
	if err != nil {
		return err
	}

	err = fn(ctx, t)
	if errors.Is(err, domain.ErrUnauthorized) {
		return fmt.Errorf("%w: token rejected again after re-authentication: %v", domain.ErrFetch, err)
	}
	return err
}

// replaceRejected logs in again unless another caller already replaced
// rejected while this one waited for the lock; concurrent rejections of the
// same token then cost a single login.
func (m *Manager) replaceRejected(ctx context.Context, rejected domain.Token) (domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Value != rejected.Value && m.current.Fresh(m.now(), m.refreshInterval) {
		return m.current, nil
	}
	m.logger.Warn("token rejected by provider, forcing re-authentication")
	return m.authenticateLocked(ctx)
}

// authenticateLocked holds mu across the provider call, bounded by the
// client timeout, so waiting callers pick up the new token instead of
// starting their own login.
func (m *Manager) authenticateLocked(ctx context.Context) (domain.Token, error) {
	value, err := m.auth.Authenticate(ctx)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		m.logger.ErrorContext(ctx, "authentication failed", "error", err)
		if !errors.Is(err, domain.ErrAuth) {
			err = fmt.Errorf("%w: %v", domain.ErrAuth, err)
		}
		return domain.Token{}, err
	}
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()

	m.current = domain.Token{Value: value, IssuedAt: m.now()}

	// the snapshot only saves a login after restart; losing it is harmless
	if err := m.store.SaveToken(ctx, m.current); err != nil {
		m.logger.WarnContext(ctx, "persist token snapshot", "error", err)
	}

	m.logger.InfoContext(ctx, "authenticated with provider")
	return m.current, nil
}
