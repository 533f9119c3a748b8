// internal/domain/account.go
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Account represents a user's ledger account.
//
// Balance is only ever mutated by the transfer engine and the interest
// accrual engine, and every mutation is guarded by Version (optimistic
// lock) so two concurrent operations cannot both commit against the
// same stale balance.
type Account struct {
	ID             int64           `db:"id" json:"id"`                             // Primary key, BIGSERIAL in DB
	Identity       string          `db:"identity" json:"identity"`                 // Opaque external auth identity, unique
	DisplayName    string          `db:"display_name" json:"display_name"`         // Human-readable name
	Email          string          `db:"email" json:"email"`                       // Email the payment ID is derived from
	PaymentID      string          `db:"payment_id" json:"payment_id"`             // Public routing key, lower-cased, unique
	Balance        decimal.Decimal `db:"balance" json:"balance"`                   // Current balance, NUMERIC(20, 4) in DB
	Version        int64           `db:"version" json:"-"`                         // Optimistic lock version
	LastInterestAt time.Time       `db:"last_interest_at" json:"last_interest_at"` // Instant interest was last computed through
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`             // Immutable creation timestamp
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`             // Timestamp of last update
}

// NewAccount creates a new Account credited with the welcome bonus.
// The caller is responsible for recording the matching ledger entry.
func NewAccount(identity, displayName, email, paymentID string, welcomeBonus decimal.Decimal) *Account {
	now := time.Now().UTC()
	return &Account{
		Identity:       identity,
		DisplayName:    displayName,
		Email:          email,
		PaymentID:      NormalizePaymentID(paymentID),
		Balance:        welcomeBonus,
		LastInterestAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizePaymentID returns the canonical lower-cased form of a payment
// identifier. All storage and lookups go through this so resolution is
// case-insensitive.
func NormalizePaymentID(paymentID string) string {
	return strings.ToLower(strings.TrimSpace(paymentID))
}

// DerivePaymentID builds a payment identifier from the local part of an
// email address and the configured domain suffix, e.g. "alice@payflow".
// An empty or malformed email falls back to the identity.
func DerivePaymentID(email, identity, suffix string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	if local == "" {
		local = identity
	}
	return NormalizePaymentID(local + "@" + suffix)
}
