package driven

import (
	"context"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// SubscriptionList is the collected result of paginating the upstream
// "list my subscriptions" API.
type SubscriptionList struct {
	// Channels holds every subscribed channel with its display metadata.
	Channels []model.Channel

	// ETag is the entity tag from the first page, to be replayed as a
	// conditional-request header on the next listing.
	ETag string

	// NotModified is true when the upstream answered 304 for the supplied
	// ETag; Channels and ETag are unset in that case.
	NotModified bool
}

// SubscriptionLister defines the driven port for the upstream subscriptions
// API used by reconciliation.
type SubscriptionLister interface {
	// ListAll fetches every page of the authenticated account's
	// subscriptions. etag may be empty on the first call.
	ListAll(ctx context.Context, accessToken, etag string) (*SubscriptionList, error)
}
