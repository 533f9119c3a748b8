// internal/repository/outbox_repo.go
package repository

import (
	"context"

	"payflow/internal/domain"
)

// OutboxRepository defines the interface for staged broker messages.
type OutboxRepository interface {
	// CreateMessage stages a message in the caller's transaction.
	CreateMessage(ctx context.Context, q DBExecutor, msg *domain.OutboxMessage) error
	// ListPendingMessages returns up to limit undelivered messages,
	// oldest first.
	ListPendingMessages(ctx context.Context, q DBExecutor, limit int) ([]domain.OutboxMessage, error)
	// MarkSent records successful delivery.
	MarkSent(ctx context.Context, q DBExecutor, id int64) error
	// IncrementRetryCount bumps the delivery attempt counter.
	IncrementRetryCount(ctx context.Context, q DBExecutor, id int64) error
	// MarkFailed parks a message that exhausted its retries.
	MarkFailed(ctx context.Context, q DBExecutor, id int64) error
}
