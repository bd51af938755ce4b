package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

type fakeCredentialStore struct {
	mu     sync.Mutex
	cred   *model.Credential
	saves  int
	clears int
}

func (s *fakeCredentialStore) Load(_ context.Context) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *fakeCredentialStore) Save(_ context.Context, cred model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cred
	s.cred = &c
	s.saves++
	return nil
}

func (s *fakeCredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.clears++
	return nil
}

type fakeExchanger struct {
	mu         sync.Mutex
	exchanged  *model.Credential
	refreshed  *model.Credential
	refreshErr error
	refreshes  int
}

func (e *fakeExchanger) Exchange(_ context.Context, _ string) (*model.Credential, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exchanged == nil {
		return nil, errors.New("no exchange result configured")
	}
	c := *e.exchanged
	return &c, nil
}

func (e *fakeExchanger) Refresh(_ context.Context, _ string) (*model.Credential, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshes++
	if e.refreshErr != nil {
		return nil, e.refreshErr
	}
	c := *e.refreshed
	return &c, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (n *fakeNotifier) Send(_ context.Context, a model.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func newTestTokenManager(t *testing.T, store *fakeCredentialStore, oauth *fakeExchanger, notifier *fakeNotifier) *TokenManager {
	t.Helper()

	m, err := NewTokenManager(context.Background(), store, oauth, notifier, "https://accounts.example/consent")
	require.NoError(t, err)
	return m
}

func TestTokenManager_WaitForToken_FreshCredential(t *testing.T) {
	store := &fakeCredentialStore{cred: &model.Credential{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}

	m := newTestTokenManager(t, store, &fakeExchanger{}, &fakeNotifier{})

	token, err := m.WaitForToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", token)
}

func TestTokenManager_WaitForToken_RefreshesExpiredCredential(t *testing.T) {
	store := &fakeCredentialStore{cred: &model.Credential{
		AccessToken:  "at-old",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}
	oauth := &fakeExchanger{refreshed: &model.Credential{
		AccessToken:  "at-new",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}

	m := newTestTokenManager(t, store, oauth, &fakeNotifier{})

	token, err := m.WaitForToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-new", token)

	// The refreshed credential must be persisted before it is served.
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "at-new", store.cred.AccessToken)
}

func TestTokenManager_WaitForToken_FailedRefreshDemotesAndAlertsOnce(t *testing.T) {
	store := &fakeCredentialStore{cred: &model.Credential{
		AccessToken:  "at-old",
		RefreshToken: "rt-revoked",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}
	oauth := &fakeExchanger{refreshErr: errors.New("invalid_grant")}
	notifier := &fakeNotifier{}

	m := newTestTokenManager(t, store, oauth, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := m.WaitForToken(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 1, store.clears)
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, "missing", m.CredentialState())
	assert.Contains(t, notifier.alerts[0].Body, "https://accounts.example/consent")
}

func TestTokenManager_WaitForToken_MissingCredentialAlertsOnce(t *testing.T) {
	notifier := &fakeNotifier{}
	m := newTestTokenManager(t, &fakeCredentialStore{}, &fakeExchanger{}, notifier)

	// Several concurrent waiters must not produce duplicate alerts.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.WaitForToken(ctx)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, notifier.count())
}

func TestTokenManager_LoadNewToken_WakesWaiters(t *testing.T) {
	store := &fakeCredentialStore{}
	oauth := &fakeExchanger{exchanged: &model.Credential{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	notifier := &fakeNotifier{}

	m := newTestTokenManager(t, store, oauth, notifier)

	type result struct {
		token string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		token, err := m.WaitForToken(context.Background())
		done <- result{token, err}
	}()

	// Give the waiter time to block on the missing credential.
	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.LoadNewToken(context.Background(), "auth-code-1"))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "at-1", r.token)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by LoadNewToken")
	}

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "valid", m.CredentialState())
}

func TestTokenManager_AlertsAgainAfterEachDemotion(t *testing.T) {
	store := &fakeCredentialStore{cred: &model.Credential{
		AccessToken:  "at-old",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}
	oauth := &fakeExchanger{refreshErr: errors.New("invalid_grant")}
	notifier := &fakeNotifier{}

	m := newTestTokenManager(t, store, oauth, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err := m.WaitForToken(ctx)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, notifier.count())

	// Recover with another expired credential. The refresh still fails,
	// so the next waiter triggers a second demotion and a second alert.
	require.NoError(t, m.promote(context.Background(), model.Credential{
		AccessToken:  "at-new",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err = m.WaitForToken(ctx)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 2, notifier.count())
}

func TestTokenManager_CredentialState(t *testing.T) {
	m := newTestTokenManager(t, &fakeCredentialStore{}, &fakeExchanger{}, &fakeNotifier{})
	assert.Equal(t, "missing", m.CredentialState())

	require.NoError(t, m.promote(context.Background(), model.Credential{
		AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: time.Now().Add(-time.Minute),
	}))
	assert.Equal(t, "expired", m.CredentialState())

	require.NoError(t, m.promote(context.Background(), model.Credential{
		AccessToken: "at-1", RefreshToken: "rt-1", ExpiresAt: time.Now().Add(time.Hour),
	}))
	assert.Equal(t, "valid", m.CredentialState())
}
