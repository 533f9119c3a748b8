// internal/repository/account_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"payflow/internal/domain"
)

// AccountRepository defines the interface for account data operations.
type AccountRepository interface {
	// CreateAccount inserts a new account. Returns util.ErrDuplicateEntry
	// (wrapped) when the identity or payment ID is already taken.
	CreateAccount(ctx context.Context, q DBExecutor, account *domain.Account) error
	// GetAccountByID retrieves an account by its primary key.
	GetAccountByID(ctx context.Context, q DBExecutor, id int64) (*domain.Account, error)
	// GetAccountByIdentity retrieves an account by its external auth identity.
	GetAccountByIdentity(ctx context.Context, q DBExecutor, identity string) (*domain.Account, error)
	// GetAccountByPaymentID resolves a normalized payment identifier.
	// Returns util.ErrNotFound on zero matches and util.ErrInconsistent
	// when more than one account claims the identifier.
	GetAccountByPaymentID(ctx context.Context, q DBExecutor, paymentID string) (*domain.Account, error)
	// ApplyBalanceChange adds delta (which may be negative) to an account
	// balance iff the stored version still equals expectedVersion and the
	// resulting balance is not negative. Returns util.ErrConflict otherwise.
	ApplyBalanceChange(ctx context.Context, q DBExecutor, accountID int64, delta decimal.Decimal, expectedVersion int64) error
	// ApplyInterest credits interest and advances the accrual anchor to
	// asOf in one guarded update. Returns util.ErrConflict when the
	// version check fails.
	ApplyInterest(ctx context.Context, q DBExecutor, accountID int64, interest decimal.Decimal, asOf time.Time, expectedVersion int64) error
	// Stats returns the total number of accounts and the sum of all balances.
	Stats(ctx context.Context, q DBExecutor) (int64, decimal.Decimal, error)
}
