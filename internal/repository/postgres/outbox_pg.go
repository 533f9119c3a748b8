// internal/repository/postgres/outbox_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
	"payflow/internal/repository"
)

// OutboxRepository implements repository.OutboxRepository for PostgreSQL.
type OutboxRepository struct{}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &OutboxRepository{}
}

// CreateMessage stages a message in the caller's transaction.
func (r *OutboxRepository) CreateMessage(ctx context.Context, q repository.DBExecutor, msg *domain.OutboxMessage) error {
	query := `INSERT INTO outbox_messages (message_key, topic, payload, status, retry_count, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		msg.MessageKey,
		msg.Topic,
		msg.Payload,
		msg.Status,
		msg.RetryCount,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// ListPendingMessages returns up to limit undelivered messages, oldest first.
func (r *OutboxRepository) ListPendingMessages(ctx context.Context, q repository.DBExecutor, limit int) ([]domain.OutboxMessage, error) {
	messages := []domain.OutboxMessage{}
	query := `SELECT id, message_key, topic, payload, status, retry_count, created_at, updated_at
              FROM outbox_messages
              WHERE status = $1
              ORDER BY id ASC
              LIMIT $2`
	if err := q.SelectContext(ctx, &messages, query, domain.OutboxStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) setStatus(ctx context.Context, q repository.DBExecutor, id int64, status domain.OutboxStatus) error {
	query := `UPDATE outbox_messages SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := q.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to set outbox message %d status to %s: %w", id, status, err)
	}
	return nil
}

// MarkSent records successful delivery.
func (r *OutboxRepository) MarkSent(ctx context.Context, q repository.DBExecutor, id int64) error {
	return r.setStatus(ctx, q, id, domain.OutboxStatusSent)
}

// MarkFailed parks a message that exhausted its retries.
func (r *OutboxRepository) MarkFailed(ctx context.Context, q repository.DBExecutor, id int64) error {
	return r.setStatus(ctx, q, id, domain.OutboxStatusFailed)
}

// IncrementRetryCount bumps the delivery attempt counter.
func (r *OutboxRepository) IncrementRetryCount(ctx context.Context, q repository.DBExecutor, id int64) error {
	query := `UPDATE outbox_messages SET retry_count = retry_count + 1, updated_at = $1 WHERE id = $2`
	if _, err := q.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to increment retry count for outbox message %d: %w", id, err)
	}
	return nil
}
