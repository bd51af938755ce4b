package driven

import "context"

// HubClient defines the driven port for the hub's subscribe/unsubscribe
// protocol. A nil error means the hub accepted the request; the actual state
// change is confirmed later through the asynchronous callback, so callers
// must not update the registry on success here.
type HubClient interface {
	// Subscribe requests a new or renewed lease for the channel's topic.
	Subscribe(ctx context.Context, channelID string) error

	// Unsubscribe requests removal of the channel's topic subscription.
	Unsubscribe(ctx context.Context, channelID string) error
}
