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
var _ driven.QueueStore = (*QueueRepo)(nil)

// QueueRepo is the SQLite implementation of the QueueStore port interface.
// Actions live in subscription_queue; their terminal outcomes live in
// subscription_queue_results, keyed 1:1 by action id. An action with no
// result row is pending.
type QueueRepo struct {
	db *DB
}

// NewQueueRepo creates a new QueueRepo backed by the given DB.
func NewQueueRepo(db *DB) *QueueRepo {
	return &QueueRepo{db: db}
}

// Enqueue inserts one action row per entry inside a single transaction.
// An empty batch is a no-op.
func (r *QueueRepo) Enqueue(ctx context.Context, entries []model.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enqueue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO subscription_queue (channel_id, action, enqueued_at) VALUES (?, ?, ?)`

	now := time.Now().UTC()
	for _, entry := range entries {
		if !entry.Kind.Valid() {
			return fmt.Errorf("enqueue %s: unknown action kind %q", entry.ChannelID, entry.Kind)
		}
		if _, err := tx.ExecContext(ctx, query, entry.ChannelID, string(entry.Kind), now); err != nil {
			return fmt.Errorf("enqueue %s %s: %w", entry.Kind, entry.ChannelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enqueue: %w", err)
	}

	return nil
}

// Pending returns all actions with no result row, each joined with the
// current registry row for its channel, ordered by insertion.
func (r *QueueRepo) Pending(ctx context.Context) ([]model.PendingAction, error) {
	const query = `
		SELECT q.id, q.channel_id, q.action, q.enqueued_at, s.expiration
		FROM subscription_queue q
		LEFT JOIN subscription_queue_results res ON res.action_id = q.id
		LEFT JOIN active_subscriptions s ON s.channel_id = q.channel_id
		WHERE res.action_id IS NULL
		ORDER BY q.id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	var pending []model.PendingAction
	for rows.Next() {
		var p model.PendingAction
		var kind, enqueuedAt string
		var expiration sql.NullString

		if err := rows.Scan(&p.Action.ID, &p.Action.ChannelID, &kind, &enqueuedAt, &expiration); err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}

		p.Action.Kind = model.ActionKind(kind)
		p.Action.EnqueuedAt, err = parseTime(enqueuedAt)
		if err != nil {
			return nil, fmt.Errorf("parse enqueued_at: %w", err)
		}

		if expiration.Valid {
			exp, err := parseTime(expiration.String)
			if err != nil {
				return nil, fmt.Errorf("parse joined expiration: %w", err)
			}
			p.Active = &model.Subscription{ChannelID: p.Action.ChannelID, Expiration: exp}
		}

		pending = append(pending, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending actions: %w", err)
	}

	return pending, nil
}

// RecordResult writes the terminal result for an action. The insert is
// conflict-ignoring so a crash-induced reprocess cannot rewrite a result
// that already exists.
func (r *QueueRepo) RecordResult(ctx context.Context, result model.QueueResult) error {
	const query = `
		INSERT INTO subscription_queue_results (action_id, error, completed_at) VALUES (?, ?, ?)
		ON CONFLICT (action_id) DO NOTHING`

	var errText sql.NullString
	if result.Error != "" {
		errText = sql.NullString{String: result.Error, Valid: true}
	}

	completedAt := result.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, result.ActionID, errText, completedAt.UTC()); err != nil {
		return fmt.Errorf("record result for action %d: %w", result.ActionID, err)
	}

	return nil
}

// ResultFor returns the result row for the given action, or nil when the
// action is still pending.
func (r *QueueRepo) ResultFor(ctx context.Context, actionID int64) (*model.QueueResult, error) {
	const query = `SELECT action_id, error, completed_at FROM subscription_queue_results WHERE action_id = ?`

	var result model.QueueResult
	var errText sql.NullString
	var completedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, actionID).Scan(&result.ActionID, &errText, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result for action %d: %w", actionID, err)
	}

	result.Error = errText.String
	result.CompletedAt, err = parseTime(completedAt)
	if err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	return &result, nil
}

// CountPending returns the number of actions with no result row.
func (r *QueueRepo) CountPending(ctx context.Context) (int64, error) {
	const query = `
		SELECT COUNT(*) FROM subscription_queue q
		LEFT JOIN subscription_queue_results res ON res.action_id = q.id
		WHERE res.action_id IS NULL`

	var count int64
	if err := r.db.Reader.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}

	return count, nil
}
