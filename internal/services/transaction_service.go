// Package services orchestrates storage writes with queue notifications.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"grana/internal/amqp"
	"grana/internal/core"
	"grana/internal/storage"
)

// EventPublisher is the slice of the AMQP client the service needs.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
	Close() error
}

// TransactionService writes transactions to SQLite and notifies the audit
// worker over AMQP. The queue is best effort: a publish failure never
// fails the request, the row is already saved.
type TransactionService struct {
	storage   *storage.Repository
	publisher EventPublisher
}

func NewTransactionService(storage *storage.Repository, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
	}
}

// Record saves a transaction and publishes a recorded event.
func (s *TransactionService) Record(ctx context.Context, t *core.Transaction) error {
	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	event := amqp.NewTransactionEvent(amqp.EventTransactionRecorded, t.Kind, t.ID, t.ProfileID)
	if err := s.publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recorded event",
			"kind", t.Kind, "id", t.ID, "error", err)
	}
	return nil
}

// Delete removes a transaction and publishes a deleted event.
func (s *TransactionService) Delete(ctx context.Context, profileID int64, kind core.TransactionKind, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, profileID, kind, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	event := amqp.NewTransactionEvent(amqp.EventTransactionDeleted, kind, id, profileID)
	if err := s.publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deleted event",
			"kind", kind, "id", id, "error", err)
	}
	return nil
}

func (s *TransactionService) publish(ctx context.Context, event *amqp.TransactionEvent) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping event", "type", event.Type)
		return nil
	}
	return s.publisher.PublishTransactionEvent(ctx, event)
}

// Close closes both the storage and the AMQP connection.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
