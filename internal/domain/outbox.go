// internal/domain/outbox.go
package domain

import "time"

// OutboxStatus defines the delivery state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

// OutboxMessage is a broker message staged in the same database
// transaction as the ledger change it describes, so an event is
// published if and only if the change committed. A background sender
// drains pending rows to the broker.
type OutboxMessage struct {
	ID         int64        `db:"id" json:"id"`
	MessageKey string       `db:"message_key" json:"message_key"` // Broker partition key
	Topic      string       `db:"topic" json:"topic"`
	Payload    string       `db:"payload" json:"payload"` // JSON-encoded LedgerEvent
	Status     OutboxStatus `db:"status" json:"status"`
	RetryCount int          `db:"retry_count" json:"retry_count"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// NewOutboxMessage creates a pending OutboxMessage.
func NewOutboxMessage(topic, messageKey, payload string) *OutboxMessage {
	now := time.Now().UTC()
	return &OutboxMessage{
		MessageKey: messageKey,
		Topic:      topic,
		Payload:    payload,
		Status:     OutboxStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
