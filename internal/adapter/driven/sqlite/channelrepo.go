package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChannelStore = (*ChannelRepo)(nil)

// ChannelRepo is the SQLite implementation of the ChannelStore port
// interface (the known-channel metadata cache).
type ChannelRepo struct {
	db *DB
}

// NewChannelRepo creates a new ChannelRepo backed by the given DB.
func NewChannelRepo(db *DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// UpsertAll inserts or updates every channel by ID inside a single
// transaction. An empty batch is a no-op.
func (r *ChannelRepo) UpsertAll(ctx context.Context, channels []model.Channel) error {
	if len(channels) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin channel upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		INSERT INTO known_channels (channel_id, name, thumbnail_url) VALUES (?, ?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET
			name = excluded.name,
			thumbnail_url = excluded.thumbnail_url`

	for _, ch := range channels {
		if _, err := tx.ExecContext(ctx, query, ch.ID, ch.Name, ch.ThumbnailURL); err != nil {
			return fmt.Errorf("upsert channel %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit channel upsert: %w", err)
	}

	return nil
}

// ListAll returns all known channels ordered by name.
func (r *ChannelRepo) ListAll(ctx context.Context) ([]model.Channel, error) {
	const query = `SELECT channel_id, name, thumbnail_url FROM known_channels ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list known channels: %w", err)
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		var ch model.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("scan known channel: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known channels: %w", err)
	}

	return channels, nil
}
