package driven

import (
	"context"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// FeedSink defines the driven port for the downstream content pipeline that
// consumes hub-delivered upload notifications.
type FeedSink interface {
	// Accept hands off one upload notification. An error means the sink
	// could not take the entry and the delivery should be refused.
	Accept(ctx context.Context, entry model.FeedEntry) error
}
