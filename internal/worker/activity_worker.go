// Package worker turns queued transaction events into audit trail rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"grana/internal/amqp"
	"grana/internal/storage"
)

// ActivityWorker consumes transaction events and appends them to the
// activity log. Processing is idempotent enough for at-least-once
// delivery: a redelivered event writes a duplicate audit row, which the
// trail tolerates.
type ActivityWorker struct {
	storage *storage.Repository
}

func NewActivityWorker(storage *storage.Repository) *ActivityWorker {
	return &ActivityWorker{storage: storage}
}

// HandleEvent records one queued event. Unknown event types are logged and
// dropped instead of requeued; requeueing would loop forever.
func (w *ActivityWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	switch event.Type {
	case amqp.EventTransactionRecorded, amqp.EventTransactionDeleted:
	default:
		slog.WarnContext(ctx, "Skipping unknown event type", "type", event.Type)
		return nil
	}

	entry := &storage.ActivityEntry{
		ProfileID:     event.ProfileID,
		EventType:     event.Type,
		Kind:          event.Kind,
		TransactionID: event.TransactionID,
		OccurredAt:    event.Timestamp,
	}
	if err := w.storage.AppendActivity(ctx, entry); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity recorded",
		"id", entry.ID,
		"type", event.Type,
		"kind", event.Kind,
		"transaction_id", event.TransactionID,
		"profile_id", event.ProfileID)
	return nil
}

// Prune drops audit rows older than the retention window.
func (w *ActivityWorker) Prune(ctx context.Context, retention time.Duration) error {
	n, err := w.storage.PruneActivity(ctx, time.Now().Add(-retention))
	if err != nil {
		return fmt.Errorf("prune activity log: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Activity log pruned", "rows", n, "retention", retention.String())
	}
	return nil
}

// PruneLoop runs Prune once immediately and then on every tick until the
// context is cancelled. Prune failures are logged, not fatal; the consumer
// keeps running.
func (w *ActivityWorker) PruneLoop(ctx context.Context, retention, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Prune(ctx, retention); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Activity prune failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
