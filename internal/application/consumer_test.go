package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

type fakeQueueStore struct {
	mu      sync.Mutex
	nextID  int64
	actions []model.QueueAction
	results map[int64]model.QueueResult
	active  map[string]model.Subscription
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{
		nextID:  1,
		results: make(map[int64]model.QueueResult),
		active:  make(map[string]model.Subscription),
	}
}

func (s *fakeQueueStore) Enqueue(_ context.Context, entries []model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.actions = append(s.actions, model.QueueAction{
			ID:         s.nextID,
			ChannelID:  e.ChannelID,
			Kind:       e.Kind,
			EnqueuedAt: time.Now().UTC(),
		})
		s.nextID++
	}
	return nil
}

func (s *fakeQueueStore) Pending(_ context.Context) ([]model.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []model.PendingAction
	for _, a := range s.actions {
		if _, done := s.results[a.ID]; done {
			continue
		}
		p := model.PendingAction{Action: a}
		if sub, ok := s.active[a.ChannelID]; ok {
			active := sub
			p.Active = &active
		}
		pending = append(pending, p)
	}
	return pending, nil
}

func (s *fakeQueueStore) RecordResult(_ context.Context, result model.QueueResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ActionID]; exists {
		return nil
	}
	s.results[result.ActionID] = result
	return nil
}

func (s *fakeQueueStore) ResultFor(_ context.Context, actionID int64) (*model.QueueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[actionID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *fakeQueueStore) CountPending(ctx context.Context) (int64, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(pending)), nil
}

type hubCall struct {
	op        string
	channelID string
}

type fakeHubClient struct {
	mu           sync.Mutex
	calls        []hubCall
	subscribeErr map[string]error
}

func (h *fakeHubClient) Subscribe(_ context.Context, channelID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, hubCall{"subscribe", channelID})
	return h.subscribeErr[channelID]
}

func (h *fakeHubClient) Unsubscribe(_ context.Context, channelID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, hubCall{"unsubscribe", channelID})
	return nil
}

func (h *fakeHubClient) callsFor(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ids []string
	for _, c := range h.calls {
		if c.op == op {
			ids = append(ids, c.channelID)
		}
	}
	return ids
}

// slowHubClient sleeps a varying amount per call and tracks the in-flight
// high-water mark.
type slowHubClient struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
}

func (h *slowHubClient) Subscribe(_ context.Context, _ string) error {
	h.mu.Lock()
	h.calls++
	h.inFlight++
	if h.inFlight > h.maxInFlight {
		h.maxInFlight = h.inFlight
	}
	delay := time.Duration(h.calls%4) * time.Millisecond
	h.mu.Unlock()

	time.Sleep(delay)

	h.mu.Lock()
	h.inFlight--
	h.mu.Unlock()
	return nil
}

func (h *slowHubClient) Unsubscribe(ctx context.Context, channelID string) error {
	return h.Subscribe(ctx, channelID)
}

func drainOnce(t *testing.T, c *QueueConsumer) {
	t.Helper()
	require.NoError(t, c.drain(context.Background()))
}

func TestQueueConsumer_DrainRoutesActionsToHub(t *testing.T) {
	store := newFakeQueueStore()
	hub := &fakeHubClient{}
	c := NewQueueConsumer(store, hub)

	require.NoError(t, c.EnqueueActions(context.Background(), []model.QueueEntry{
		{ChannelID: "UC1", Kind: model.ActionSubscribe},
		{ChannelID: "UC2", Kind: model.ActionUnsubscribe},
	}))

	drainOnce(t, c)

	assert.ElementsMatch(t, []string{"UC1"}, hub.callsFor("subscribe"))
	assert.ElementsMatch(t, []string{"UC2"}, hub.callsFor("unsubscribe"))

	for id := int64(1); id <= 2; id++ {
		result, err := store.ResultFor(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result.Error)
	}
}

func TestQueueConsumer_RefreshResubscribesActiveChannel(t *testing.T) {
	store := newFakeQueueStore()
	store.active["UC1"] = model.Subscription{ChannelID: "UC1", Expiration: time.Now().Add(time.Hour)}
	hub := &fakeHubClient{}
	c := NewQueueConsumer(store, hub)

	require.NoError(t, c.EnqueueActions(context.Background(), []model.QueueEntry{
		{ChannelID: "UC1", Kind: model.ActionRefresh},
	}))

	drainOnce(t, c)

	assert.ElementsMatch(t, []string{"UC1"}, hub.callsFor("subscribe"))
}

func TestQueueConsumer_RefreshForRemovedChannelIsSuccessfulNoOp(t *testing.T) {
	store := newFakeQueueStore()
	hub := &fakeHubClient{}
	c := NewQueueConsumer(store, hub)

	require.NoError(t, c.EnqueueActions(context.Background(), []model.QueueEntry{
		{ChannelID: "UC-gone", Kind: model.ActionRefresh},
	}))

	drainOnce(t, c)

	assert.Empty(t, hub.calls)

	result, err := store.ResultFor(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Error)
}

func TestQueueConsumer_HubFailureIsRecordedNotRetried(t *testing.T) {
	store := newFakeQueueStore()
	hub := &fakeHubClient{subscribeErr: map[string]error{
		"UC-bad": errors.New("hub returned 502"),
	}}
	c := NewQueueConsumer(store, hub)

	require.NoError(t, c.EnqueueActions(context.Background(), []model.QueueEntry{
		{ChannelID: "UC-bad", Kind: model.ActionSubscribe},
		{ChannelID: "UC-ok", Kind: model.ActionSubscribe},
	}))

	drainOnce(t, c)

	// The failure did not stop the rest of the batch.
	assert.ElementsMatch(t, []string{"UC-bad", "UC-ok"}, hub.callsFor("subscribe"))

	result, err := store.ResultFor(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Error, "502")

	count, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	// A second drain finds nothing to redo.
	drainOnce(t, c)
	assert.Len(t, hub.callsFor("subscribe"), 2)
}

func TestQueueConsumer_DrainCapsInFlightHubRequests(t *testing.T) {
	store := newFakeQueueStore()
	hub := &slowHubClient{}
	c := NewQueueConsumer(store, hub)

	const actionCount = 30
	entries := make([]model.QueueEntry, actionCount)
	for i := range entries {
		entries[i] = model.QueueEntry{ChannelID: fmt.Sprintf("UC-%02d", i), Kind: model.ActionSubscribe}
	}
	require.NoError(t, c.EnqueueActions(context.Background(), entries))

	drainOnce(t, c)

	assert.Equal(t, actionCount, hub.calls)
	assert.LessOrEqual(t, hub.maxInFlight, hubConcurrency)

	// One result per action, none pending, none recorded twice.
	assert.Len(t, store.results, actionCount)
	count, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	for id := int64(1); id <= actionCount; id++ {
		result, err := store.ResultFor(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result.Error)
	}
}

func TestQueueConsumer_EnqueueEmptyBatchIsNoOp(t *testing.T) {
	store := newFakeQueueStore()
	c := NewQueueConsumer(store, &fakeHubClient{})

	require.NoError(t, c.EnqueueActions(context.Background(), nil))

	assert.Empty(t, store.actions)
	select {
	case <-c.wake:
		t.Fatal("empty batch must not signal the consumer")
	default:
	}
}

func TestQueueConsumer_StartWakesOnEnqueue(t *testing.T) {
	store := newFakeQueueStore()
	hub := &fakeHubClient{}
	c := NewQueueConsumer(store, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.NoError(t, c.EnqueueActions(ctx, []model.QueueEntry{
		{ChannelID: "UC1", Kind: model.ActionSubscribe},
	}))

	require.Eventually(t, func() bool {
		count, err := store.CountPending(context.Background())
		return err == nil && count == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
