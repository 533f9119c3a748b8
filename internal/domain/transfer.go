// internal/domain/transfer.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransferStatus defines the lifecycle state of a transfer attempt.
type TransferStatus string

const (
	// TransferStatusPending marks a claimed attempt whose ledger
	// mutation has not been confirmed committed yet.
	TransferStatusPending TransferStatus = "PENDING"
	// TransferStatusCompleted marks a transfer whose debit and credit
	// both committed.
	TransferStatusCompleted TransferStatus = "COMPLETED"
	// TransferStatusFailed marks a cleanly rejected or rolled-back
	// transfer. No balance was changed.
	TransferStatusFailed TransferStatus = "FAILED"
	// TransferStatusUnderReview marks a transfer whose outcome is
	// ambiguous (e.g. the commit timed out). The reconciler settles it.
	TransferStatusUnderReview TransferStatus = "UNDER_REVIEW"
)

// Transfer is the durable record of one transfer attempt. Its RequestID
// is the caller-supplied idempotency key: retrying a request that
// already has a Transfer row returns the recorded outcome instead of
// moving money again.
type Transfer struct {
	ID            int64           `db:"id" json:"-"`                        // Primary key, BIGSERIAL in DB
	TransferNo    string          `db:"transfer_no" json:"transfer_no"`     // System-assigned reference, unique
	RequestID     string          `db:"request_id" json:"request_id"`       // Caller idempotency key, unique
	FromAccountID int64           `db:"from_account_id" json:"from_account_id"`
	ToPaymentID   string          `db:"to_payment_id" json:"to_payment_id"` // Receiver routing key as requested
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Note          string          `db:"note" json:"note"`
	Status        TransferStatus  `db:"status" json:"status"`
	FailReason    string          `db:"fail_reason" json:"fail_reason,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// NewTransfer creates a pending Transfer claim for a request.
func NewTransfer(transferNo, requestID string, fromAccountID int64, toPaymentID string, amount decimal.Decimal, note string) *Transfer {
	return &Transfer{
		TransferNo:    transferNo,
		RequestID:     requestID,
		FromAccountID: fromAccountID,
		ToPaymentID:   NormalizePaymentID(toPaymentID),
		Amount:        amount,
		Note:          note,
		Status:        TransferStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}
