package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// hubConcurrency caps how many hub requests are in flight while draining the
// queue.
const hubConcurrency = 10

// ActionEnqueuer is the write side of the action queue, consumed by the
// scheduler and the reconciler.
type ActionEnqueuer interface {
	// EnqueueActions durably appends the entries and wakes the consumer.
	EnqueueActions(ctx context.Context, entries []model.QueueEntry) error
}

// QueueConsumer drains the durable action queue against the hub. Each action
// gets exactly one result row; hub failures are recorded, not retried.
type QueueConsumer struct {
	queue driven.QueueStore
	hub   driven.HubClient
	wake  chan struct{}
}

// Compile-time interface satisfaction check.
var _ ActionEnqueuer = (*QueueConsumer)(nil)

// NewQueueConsumer creates a consumer over the given queue store and hub
// client.
func NewQueueConsumer(queue driven.QueueStore, hub driven.HubClient) *QueueConsumer {
	return &QueueConsumer{
		queue: queue,
		hub:   hub,
		// Buffered so a signal arriving mid-drain is not lost.
		wake: make(chan struct{}, 1),
	}
}

// EnqueueActions appends the entries in one transaction and signals the
// consumer once for the whole batch. An empty batch is a no-op.
func (c *QueueConsumer) EnqueueActions(ctx context.Context, entries []model.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if err := c.queue.Enqueue(ctx, entries); err != nil {
		return fmt.Errorf("enqueue actions: %w", err)
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}

	return nil
}

// Start drains pending actions until ctx is canceled. Store failures are
// fatal; the supervisor restarts the process rather than risk losing or
// double-processing actions.
func (c *QueueConsumer) Start(ctx context.Context) error {
	slog.Info("queue consumer started")

	for {
		if err := c.drain(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			slog.Info("queue consumer stopping")
			return ctx.Err()
		case <-c.wake:
		}
	}
}

// drain processes every currently pending action, at most hubConcurrency at
// a time.
func (c *QueueConsumer) drain(ctx context.Context) error {
	pending, err := c.queue.Pending(ctx)
	if err != nil {
		return fmt.Errorf("load pending actions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.Info("draining action queue", "pending", len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hubConcurrency)

	for _, action := range pending {
		g.Go(func() error {
			result := model.QueueResult{
				ActionID:    action.Action.ID,
				Error:       c.processAction(gctx, action),
				CompletedAt: time.Now().UTC(),
			}
			if err := c.queue.RecordResult(gctx, result); err != nil {
				return fmt.Errorf("record result for action %d: %w", action.Action.ID, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// processAction performs one hub interaction and returns the error text for
// the result row, empty on success.
func (c *QueueConsumer) processAction(ctx context.Context, pending model.PendingAction) string {
	action := pending.Action
	log := slog.With("action_id", action.ID, "channel_id", action.ChannelID, "kind", action.Kind)

	var err error
	switch action.Kind {
	case model.ActionSubscribe:
		err = c.hub.Subscribe(ctx, action.ChannelID)
	case model.ActionUnsubscribe:
		err = c.hub.Unsubscribe(ctx, action.ChannelID)
	case model.ActionRefresh:
		if pending.Active == nil {
			// The subscription was removed after the refresh was queued.
			log.Warn("skipping refresh for inactive subscription")
			return ""
		}
		err = c.hub.Subscribe(ctx, action.ChannelID)
	default:
		err = fmt.Errorf("unknown action kind %q", action.Kind)
	}

	if err != nil {
		log.Error("hub request failed", "error", err)
		return err.Error()
	}

	log.Info("action completed")
	return ""
}
