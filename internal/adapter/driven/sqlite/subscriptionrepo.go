package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubscriptionStore = (*SubscriptionRepo)(nil)

// SubscriptionRepo is the SQLite implementation of the SubscriptionStore
// port interface (the subscription registry).
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a new SubscriptionRepo backed by the given DB.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Upsert inserts or updates the registry row for sub.ChannelID.
func (r *SubscriptionRepo) Upsert(ctx context.Context, sub model.Subscription) error {
	const query = `
		INSERT INTO active_subscriptions (channel_id, expiration) VALUES (?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET expiration = excluded.expiration`

	_, err := r.db.Writer.ExecContext(ctx, query, sub.ChannelID, sub.Expiration.UTC())
	if err != nil {
		return fmt.Errorf("upsert subscription %s: %w", sub.ChannelID, err)
	}

	return nil
}

// Remove deletes the registry row for the channel. Removing a channel that
// is not present is a no-op.
func (r *SubscriptionRepo) Remove(ctx context.Context, channelID string) error {
	const query = `DELETE FROM active_subscriptions WHERE channel_id = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, channelID); err != nil {
		return fmt.Errorf("remove subscription %s: %w", channelID, err)
	}

	return nil
}

// SoonestExpiration returns the minimum expiration over all rows, or nil
// when the registry is empty.
func (r *SubscriptionRepo) SoonestExpiration(ctx context.Context) (*time.Time, error) {
	const query = `SELECT MIN(expiration) FROM active_subscriptions`

	var raw sql.NullString
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("soonest expiration: %w", err)
	}

	t, err := parseTime(raw.String)
	if err != nil {
		return nil, fmt.Errorf("parse soonest expiration: %w", err)
	}

	return &t, nil
}

// ExpiringBefore returns all subscriptions expiring strictly before cutoff,
// ordered by expiration.
func (r *SubscriptionRepo) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]model.Subscription, error) {
	const query = `
		SELECT channel_id, expiration FROM active_subscriptions
		WHERE expiration < ? ORDER BY expiration`

	rows, err := r.db.Reader.QueryContext(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// AllChannelIDs returns the set of channel IDs currently in the registry.
func (r *SubscriptionRepo) AllChannelIDs(ctx context.Context) (map[string]struct{}, error) {
	const query = `SELECT channel_id FROM active_subscriptions`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channel ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel id: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel ids: %w", err)
	}

	return ids, nil
}

func scanSubscription(s scanner) (*model.Subscription, error) {
	var sub model.Subscription
	var expiration string

	if err := s.Scan(&sub.ChannelID, &expiration); err != nil {
		return nil, err
	}

	var err error
	sub.Expiration, err = parseTime(expiration)
	if err != nil {
		return nil, fmt.Errorf("parse expiration: %w", err)
	}

	return &sub, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
