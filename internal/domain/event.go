// internal/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger event types published to downstream consumers.
const (
	EventTypeTransferCompleted = "TRANSFER_COMPLETED"
	EventTypeInterestPosted    = "INTEREST_POSTED"
	EventTypeAccountCreated    = "ACCOUNT_CREATED"
)

// LedgerEvent is the payload written to the outbox whenever the ledger
// changes, and later published to the message broker. It carries only
// facts that are already committed.
type LedgerEvent struct {
	Type           string          `json:"type"`
	TransferNo     string          `json:"transfer_no,omitempty"`
	AccountID      int64           `json:"account_id"`
	CounterpartyID int64           `json:"counterparty_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
