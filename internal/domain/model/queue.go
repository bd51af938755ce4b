package model

import "time"

// ActionKind identifies what the queue consumer should ask the hub to do
// for a channel.
type ActionKind string

const (
	ActionSubscribe   ActionKind = "subscribe"
	ActionUnsubscribe ActionKind = "unsubscribe"
	ActionRefresh     ActionKind = "refresh"
)

// Valid reports whether k is one of the known action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionSubscribe, ActionUnsubscribe, ActionRefresh:
		return true
	}
	return false
}

// QueueEntry is a to-be-enqueued (channel, action) pair. Batch enqueues
// insert one QueueAction row per entry.
type QueueEntry struct {
	ChannelID string
	Kind      ActionKind
}

// QueueAction is one pending subscription-management action. Rows are
// immutable once written; the matching QueueResult row marks completion.
type QueueAction struct {
	ID         int64
	ChannelID  string
	Kind       ActionKind
	EnqueuedAt time.Time
}

// QueueResult records the terminal outcome of a queue action. An empty Error
// means the action succeeded. At most one result exists per action and it is
// never rewritten.
type QueueResult struct {
	ActionID    int64
	Error       string
	CompletedAt time.Time
}

// PendingAction is a queue action that has no result yet, joined with the
// registry row for its channel (nil when the channel is not currently
// believed subscribed).
type PendingAction struct {
	Action QueueAction
	Active *Subscription
}
