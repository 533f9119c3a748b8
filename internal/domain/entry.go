// internal/domain/entry.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// EntryDirection defines whether a ledger entry moves value into or out
// of its account.
type EntryDirection string

const (
	EntryDirectionCredit EntryDirection = "CREDIT"
	EntryDirectionDebit  EntryDirection = "DEBIT"
)

// EntryStatus defines the status of a ledger entry.
type EntryStatus string

const (
	EntryStatusSuccess EntryStatus = "SUCCESS"
	EntryStatusFailed  EntryStatus = "FAILED"
	EntryStatusPending EntryStatus = "PENDING"
)

// LedgerEntry is one immutable record of value moving into or out of an
// account. Entries are append-only: they are created once and never
// edited or removed. A transfer duplicates its movement into both the
// sender's ledger (DEBIT) and the receiver's ledger (CREDIT).
type LedgerEntry struct {
	ID           int64           `db:"id" json:"id"`                     // Primary key, BIGSERIAL in DB
	AccountID    int64           `db:"account_id" json:"account_id"`     // Owning account
	Direction    EntryDirection  `db:"direction" json:"direction"`       // CREDIT or DEBIT
	Amount       decimal.Decimal `db:"amount" json:"amount"`             // Always positive, NUMERIC(20, 4) in DB
	Counterparty string          `db:"counterparty" json:"counterparty"` // Payment ID of the other side
	Note         string          `db:"note" json:"note"`                 // Free-text note
	Status       EntryStatus     `db:"status" json:"status"`             // SUCCESS, FAILED or PENDING
	TransferNo   string          `db:"transfer_no" json:"transfer_no"`   // Originating transfer or accrual reference
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`     // Timestamp of record creation
}

// NewLedgerEntry creates a new LedgerEntry instance.
func NewLedgerEntry(accountID int64, direction EntryDirection, amount decimal.Decimal, counterparty, note, transferNo string) *LedgerEntry {
	return &LedgerEntry{
		AccountID:    accountID,
		Direction:    direction,
		Amount:       amount,
		Counterparty: counterparty,
		Note:         note,
		Status:       EntryStatusSuccess,
		TransferNo:   transferNo,
		CreatedAt:    time.Now().UTC(),
	}
}
