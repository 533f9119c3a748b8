// internal/job/outbox_sender.go
package job

import (
	"context"
	"log/slog"
	"time"

	"payflow/internal/domain"
	"payflow/internal/repository"
	"payflow/pkg/mq"
)

// OutboxSender drains staged ledger events to the message broker.
// Events are written to the outbox table in the same transaction as
// the ledger change they describe, so delivery here is at-least-once
// for exactly the changes that committed.
type OutboxSender struct {
	dbExecutor repository.DBExecutor
	outboxRepo repository.OutboxRepository
	producer   mq.Producer
	logger     *slog.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

// NewOutboxSender creates a new OutboxSender.
func NewOutboxSender(dbExecutor repository.DBExecutor, outboxRepo repository.OutboxRepository, producer mq.Producer, maxRetries int, logger *slog.Logger) *OutboxSender {
	return &OutboxSender{
		dbExecutor: dbExecutor,
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
		maxRetries: maxRetries,
		interval:   time.Second,
		batchSize:  100,
	}
}

// Start runs the sender loop until ctx is cancelled.
func (s *OutboxSender) Start(ctx context.Context) {
	s.logger.Info("Outbox sender started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Outbox sender stopped")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

// ProcessPending delivers one batch of pending messages.
func (s *OutboxSender) ProcessPending(ctx context.Context) {
	messages, err := s.outboxRepo.ListPendingMessages(ctx, s.dbExecutor, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to list pending outbox messages", "error", err)
		return
	}

	for i := range messages {
		s.send(ctx, &messages[i])
	}
}

func (s *OutboxSender) send(ctx context.Context, msg *domain.OutboxMessage) {
	err := s.producer.Send(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if markErr := s.outboxRepo.MarkSent(ctx, s.dbExecutor, msg.ID); markErr != nil {
			s.logger.Error("Failed to mark outbox message sent", "id", msg.ID, "error", markErr)
		}
		return
	}

	s.logger.Error("Failed to publish outbox message", "id", msg.ID, "topic", msg.Topic, "error", err)

	if retryErr := s.outboxRepo.IncrementRetryCount(ctx, s.dbExecutor, msg.ID); retryErr != nil {
		s.logger.Error("Failed to increment outbox retry count", "id", msg.ID, "error", retryErr)
		return
	}
	if msg.RetryCount+1 >= s.maxRetries {
		if failErr := s.outboxRepo.MarkFailed(ctx, s.dbExecutor, msg.ID); failErr != nil {
			s.logger.Error("Failed to mark outbox message failed", "id", msg.ID, "error", failErr)
			return
		}
		s.logger.Warn("Outbox message exceeded max retries", "id", msg.ID, "retries", msg.RetryCount+1)
	}
}
