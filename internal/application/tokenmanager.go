// Package application contains the background components that keep hub
// subscriptions, the action queue, and the OAuth credential in sync.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// TokenSource is the read side of the token manager, consumed by any
// component that needs a bearer token.
type TokenSource interface {
	// WaitForToken blocks until a usable access token exists or ctx is
	// canceled.
	WaitForToken(ctx context.Context) (string, error)
}

// TokenManager owns the single cached OAuth credential. All reads go through
// WaitForToken; every state transition is mirrored to the credential store
// and wakes all waiters. When no usable credential exists, exactly one
// re-authentication alert is sent per demotion.
type TokenManager struct {
	store     driven.CredentialStore
	oauth     driven.OAuthExchanger
	notifier  driven.AlertNotifier
	reauthURL string

	mu      sync.Mutex
	cred    *model.Credential // nil when missing
	alerted bool              // meaningful only while cred is nil
	wake    chan struct{}     // closed and replaced on every transition

	now func() time.Time
}

// Compile-time interface satisfaction check.
var _ TokenSource = (*TokenManager)(nil)

// NewTokenManager creates a TokenManager primed from the persisted
// credential. reauthURL is the provider consent URL included in
// re-authentication alerts.
func NewTokenManager(ctx context.Context, store driven.CredentialStore, oauth driven.OAuthExchanger, notifier driven.AlertNotifier, reauthURL string) (*TokenManager, error) {
	cred, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted credential: %w", err)
	}

	return &TokenManager{
		store:     store,
		oauth:     oauth,
		notifier:  notifier,
		reauthURL: reauthURL,
		cred:      cred,
		wake:      make(chan struct{}),
		now:       time.Now,
	}, nil
}

// LoadNewToken exchanges an authorization code for a fresh credential,
// persists it, and wakes all waiters.
func (m *TokenManager) LoadNewToken(ctx context.Context, code string) error {
	cred, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := m.promote(ctx, *cred); err != nil {
		return err
	}

	slog.Info("new credential loaded", "expires_at", cred.ExpiresAt)
	return nil
}

// WaitForToken blocks until a usable access token exists. The state is
// re-evaluated from the top every time a waiter wakes:
//
//   - present and unexpired: return the access token
//   - present and expired: attempt a refresh; on failure demote to missing
//     (persisted, one alert) and wait
//   - missing and not yet alerted: send the alert, mark alerted, wait
//   - missing and alerted: wait without re-alerting
func (m *TokenManager) WaitForToken(ctx context.Context) (string, error) {
	for {
		m.mu.Lock()
		wake := m.wake

		if m.cred != nil {
			if !m.cred.Expired(m.now()) {
				token := m.cred.AccessToken
				m.mu.Unlock()
				return token, nil
			}

			refreshToken := m.cred.RefreshToken
			m.mu.Unlock()

			// Concurrent waiters that all observe an expired credential
			// each issue their own refresh call against the provider; see
			// DESIGN.md before coalescing them.
			cred, err := m.oauth.Refresh(ctx, refreshToken)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				slog.Warn("token refresh failed", "error", err)
				if err := m.demote(ctx); err != nil {
					return "", err
				}
				continue
			}

			if err := m.promote(ctx, *cred); err != nil {
				return "", err
			}
			continue
		}

		// Missing. The first waiter to observe the unalerted state sends
		// the single alert for this demotion.
		if !m.alerted {
			m.alerted = true
			m.mu.Unlock()
			m.sendAlert(ctx)
		} else {
			m.mu.Unlock()
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wake:
		}
	}
}

// CredentialState reports the current token state for the status API:
// "valid", "expired", or "missing".
func (m *TokenManager) CredentialState() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.cred == nil:
		return "missing"
	case m.cred.Expired(m.now()):
		return "expired"
	default:
		return "valid"
	}
}

// promote persists cred, installs it as the current credential, and wakes
// all waiters.
func (m *TokenManager) promote(ctx context.Context, cred model.Credential) error {
	if err := m.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	m.mu.Lock()
	c := cred
	m.cred = &c
	m.alerted = false
	m.broadcastLocked()
	m.mu.Unlock()

	return nil
}

// demote clears the credential after a failed refresh, persists the
// demotion, and sends the single alert for it. A waiter that lost the race
// to a concurrent demotion does nothing.
func (m *TokenManager) demote(ctx context.Context) error {
	m.mu.Lock()
	if m.cred == nil {
		m.mu.Unlock()
		return nil
	}
	m.cred = nil
	m.alerted = true
	m.broadcastLocked()
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("persist credential demotion: %w", err)
	}

	m.sendAlert(ctx)
	return nil
}

// sendAlert forwards the pre-built re-authentication message. Delivery
// failures are logged; the waiter keeps waiting either way.
func (m *TokenManager) sendAlert(ctx context.Context) {
	err := m.notifier.Send(ctx, model.Alert{
		Subject: "hubsync needs re-authentication",
		Body:    fmt.Sprintf("The stored credential is no longer usable. Re-authenticate at %s to resume subscription reconciliation.", m.reauthURL),
	})
	if err != nil {
		slog.Error("failed to send re-authentication alert", "error", err)
		return
	}

	slog.Info("re-authentication alert sent")
}

// broadcastLocked wakes every waiter. Callers must hold m.mu.
func (m *TokenManager) broadcastLocked() {
	close(m.wake)
	m.wake = make(chan struct{})
}
