package driven

import (
	"context"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// QueueStore defines the driven port for the durable action queue. Actions
// are append-only; a result row marks an action as processed and its absence
// marks it pending.
type QueueStore interface {
	// Enqueue inserts one QueueAction row per entry in a single batch.
	Enqueue(ctx context.Context, entries []model.QueueEntry) error

	// Pending returns all actions with no result row, each joined with the
	// current registry row for its channel (nil when absent), ordered by
	// insertion.
	Pending(ctx context.Context) ([]model.PendingAction, error)

	// RecordResult writes the terminal result for an action. A result that
	// already exists is left untouched; results are never rewritten.
	RecordResult(ctx context.Context, result model.QueueResult) error

	// ResultFor returns the result row for the given action, or nil when
	// the action is still pending.
	ResultFor(ctx context.Context, actionID int64) (*model.QueueResult, error)

	// CountPending returns the number of actions with no result row.
	CountPending(ctx context.Context) (int64, error)
}
