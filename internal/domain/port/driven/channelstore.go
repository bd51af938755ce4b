package driven

import (
	"context"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// ChannelStore defines the driven port for the known-channel metadata cache.
// Reconciliation writes it from upstream metadata; the dashboard reads it.
type ChannelStore interface {
	// UpsertAll inserts or updates every channel by ID in one batch.
	UpsertAll(ctx context.Context, channels []model.Channel) error

	// ListAll returns all known channels ordered by name.
	ListAll(ctx context.Context) ([]model.Channel, error)
}
