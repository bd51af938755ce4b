package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// SubscriptionStore defines the driven port for the subscription registry:
// the persisted set of channels believed currently subscribed at the hub.
// It holds pure data operations only; callers decide what the values mean.
type SubscriptionStore interface {
	// Upsert inserts or updates the registry row for sub.ChannelID.
	Upsert(ctx context.Context, sub model.Subscription) error

	// Remove deletes the registry row for the channel. Removing a channel
	// that is not present is not an error.
	Remove(ctx context.Context, channelID string) error

	// SoonestExpiration returns the minimum expiration over all rows, or
	// nil when the registry is empty.
	SoonestExpiration(ctx context.Context) (*time.Time, error)

	// ExpiringBefore returns all subscriptions whose expiration is strictly
	// before cutoff, ordered by expiration.
	ExpiringBefore(ctx context.Context, cutoff time.Time) ([]model.Subscription, error)

	// AllChannelIDs returns the set of channel IDs currently in the registry.
	AllChannelIDs(ctx context.Context) (map[string]struct{}, error)
}
