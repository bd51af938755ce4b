package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// Reconciler periodically diffs the upstream subscription list against the
// registry and enqueues actions for the delta. It is the only writer of the
// known-channel cache.
type Reconciler struct {
	subs     driven.SubscriptionStore
	channels driven.ChannelStore
	enqueuer ActionEnqueuer
	tokens   TokenSource
	lister   driven.SubscriptionLister

	interval time.Duration

	// lastETag is replayed as a conditional-request header. Only the ticker
	// goroutine touches it.
	lastETag string
}

// NewReconciler creates a reconciler that ticks every interval.
func NewReconciler(subs driven.SubscriptionStore, channels driven.ChannelStore, enqueuer ActionEnqueuer, tokens TokenSource, lister driven.SubscriptionLister, interval time.Duration) *Reconciler {
	return &Reconciler{
		subs:     subs,
		channels: channels,
		enqueuer: enqueuer,
		tokens:   tokens,
		lister:   lister,
		interval: interval,
	}
}

// Start runs the reconciliation ticker until ctx is canceled. Ticks that run
// long do not fire again to catch up. Store failures are fatal; upstream
// failures abort the tick only.
func (r *Reconciler) Start(ctx context.Context) error {
	slog.Info("reconciler started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciler stopping")
			return ctx.Err()
		case <-ticker.C:
		}

		if err := r.reconcile(ctx); err != nil {
			return err
		}
	}
}

// reconcile performs one tick: list upstream, diff against the registry,
// enqueue the delta, refresh the channel cache.
func (r *Reconciler) reconcile(ctx context.Context) error {
	registered, err := r.subs.AllChannelIDs(ctx)
	if err != nil {
		return fmt.Errorf("load registered channel ids: %w", err)
	}

	token, err := r.tokens.WaitForToken(ctx)
	if err != nil {
		return err
	}

	list, err := r.lister.ListAll(ctx, token, r.lastETag)
	if err != nil {
		// Upstream trouble costs one tick, not the process.
		slog.Error("upstream subscription listing failed", "error", err)
		return nil
	}

	if list.NotModified {
		slog.Debug("upstream subscriptions unchanged", "etag", r.lastETag)
		return nil
	}
	r.lastETag = list.ETag

	upstream := make(map[string]struct{}, len(list.Channels))
	for _, ch := range list.Channels {
		upstream[ch.ID] = struct{}{}
	}

	var entries []model.QueueEntry
	for id := range upstream {
		if _, ok := registered[id]; !ok {
			entries = append(entries, model.QueueEntry{ChannelID: id, Kind: model.ActionSubscribe})
		}
	}
	added := len(entries)
	for id := range registered {
		if _, ok := upstream[id]; !ok {
			entries = append(entries, model.QueueEntry{ChannelID: id, Kind: model.ActionUnsubscribe})
		}
	}
	removed := len(entries) - added

	if err := r.enqueuer.EnqueueActions(ctx, entries); err != nil {
		return fmt.Errorf("enqueue reconciliation delta: %w", err)
	}

	if err := r.channels.UpsertAll(ctx, list.Channels); err != nil {
		return fmt.Errorf("update known channels: %w", err)
	}

	slog.Info("reconciliation tick complete",
		"upstream", len(upstream), "registered", len(registered),
		"added", added, "removed", removed)

	return nil
}
