package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// RenewalScheduler queues refresh actions for subscriptions approaching
// expiration. It sleeps until the soonest expiration enters the renewal
// window, then enqueues one refresh per expiring subscription.
type RenewalScheduler struct {
	subs     driven.SubscriptionStore
	enqueuer ActionEnqueuer

	window   time.Duration // how far ahead of expiration a subscription is renewable
	delay    time.Duration // how long past window entry the wake-up is pushed
	fallback time.Duration // sleep when the registry is empty

	now func() time.Time
}

// NewRenewalScheduler creates a scheduler over the subscription registry.
func NewRenewalScheduler(subs driven.SubscriptionStore, enqueuer ActionEnqueuer, window, delay, fallback time.Duration) *RenewalScheduler {
	return &RenewalScheduler{
		subs:     subs,
		enqueuer: enqueuer,
		window:   window,
		delay:    delay,
		fallback: fallback,
		now:      time.Now,
	}
}

// Start runs the sleep/renew loop until ctx is canceled. Registry and queue
// failures are fatal; the supervisor restarts the process.
func (s *RenewalScheduler) Start(ctx context.Context) error {
	slog.Info("renewal scheduler started",
		"window", s.window, "delay", s.delay, "fallback", s.fallback)

	for {
		soonest, err := s.subs.SoonestExpiration(ctx)
		if err != nil {
			return fmt.Errorf("load soonest expiration: %w", err)
		}

		sleep := s.sleepDuration(soonest, s.now())
		slog.Debug("renewal scheduler sleeping", "duration", sleep)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("renewal scheduler stopping")
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.renewExpiring(ctx); err != nil {
			return err
		}
	}
}

// renewExpiring enqueues one refresh per subscription inside the renewal
// window.
func (s *RenewalScheduler) renewExpiring(ctx context.Context) error {
	cutoff := s.now().Add(s.window)

	expiring, err := s.subs.ExpiringBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("load expiring subscriptions: %w", err)
	}
	if len(expiring) == 0 {
		return nil
	}

	entries := make([]model.QueueEntry, 0, len(expiring))
	for _, sub := range expiring {
		entries = append(entries, model.QueueEntry{
			ChannelID: sub.ChannelID,
			Kind:      model.ActionRefresh,
		})
	}

	if err := s.enqueuer.EnqueueActions(ctx, entries); err != nil {
		return fmt.Errorf("enqueue refresh actions: %w", err)
	}

	slog.Info("queued subscription renewals", "count", len(entries))
	return nil
}

// sleepDuration computes how long to sleep before the next renewal pass. The
// wake-up lands delay after the soonest expiration enters the window, so one
// pass picks up every subscription that expired into the window around the
// same time. A nil soonest means the registry is empty.
func (s *RenewalScheduler) sleepDuration(soonest *time.Time, now time.Time) time.Duration {
	if soonest == nil {
		return s.fallback
	}

	d := soonest.Sub(now) - (s.window - s.delay)
	if d < 0 {
		return 0
	}
	return d
}
