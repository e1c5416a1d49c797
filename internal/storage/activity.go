package storage

import (
	"context"
	"fmt"
	"time"

	"grana/internal/core"
)

// ActivityEntry is one audit trail row written by the worker when a
// transaction event arrives on the queue.
type ActivityEntry struct {
	ID            int64                `json:"id"`
	ProfileID     int64                `json:"profile_id"`
	EventType     string               `json:"event_type"`
	Kind          core.TransactionKind `json:"kind"`
	TransactionID int64                `json:"transaction_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func (r *Repository) AppendActivity(ctx context.Context, e *ActivityEntry) error {
	if e.EventType == "" {
		return fmt.Errorf("activity entry without event type: %w", core.ErrInvalidKind)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (profile_id, event_type, kind, transaction_id, occurred_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ProfileID, e.EventType, e.Kind, e.TransactionID,
		e.OccurredAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("activity id: %w", err)
	}
	return nil
}

// PruneActivity deletes audit rows that occurred before the cutoff,
// across all profiles, and reports how many were removed.
func (r *Repository) PruneActivity(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_log WHERE occurred_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune activity rows: %w", err)
	}
	return n, nil
}

// ListActivity returns the newest audit rows for a profile.
func (r *Repository) ListActivity(ctx context.Context, profileID int64, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, profile_id, event_type, kind, transaction_id, occurred_at
		 FROM activity_log WHERE profile_id = ? ORDER BY id DESC LIMIT ?`,
		profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var occurredAt string
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.EventType, &e.Kind, &e.TransactionID, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.OccurredAt = parseCreatedAt(occurredAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
