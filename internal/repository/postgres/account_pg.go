// internal/repository/postgres/account_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"payflow/internal/domain"
	"payflow/internal/repository"
	"payflow/internal/util"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// AccountRepository implements repository.AccountRepository for PostgreSQL.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &AccountRepository{}
}

// CreateAccount inserts a new account using the provided DBExecutor.
func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	query := `INSERT INTO accounts (identity, display_name, email, payment_id, balance, version, last_interest_at, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		account.Identity,
		account.DisplayName,
		account.Email,
		account.PaymentID,
		account.Balance,
		account.LastInterestAt,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account identity or payment ID already taken: %w", util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves an account by its primary key.
func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, identity, display_name, email, payment_id, balance, version, last_interest_at, created_at, updated_at
              FROM accounts WHERE id = $1`
	err := q.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID %d: %w", id, err)
	}
	return &account, nil
}

// GetAccountByIdentity retrieves an account by its external auth identity.
func (r *AccountRepository) GetAccountByIdentity(ctx context.Context, q repository.DBExecutor, identity string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, identity, display_name, email, payment_id, balance, version, last_interest_at, created_at, updated_at
              FROM accounts WHERE identity = $1`
	err := q.GetContext(ctx, &account, query, identity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by identity '%s': %w", identity, err)
	}
	return &account, nil
}

// GetAccountByPaymentID resolves a normalized payment identifier.
// The payment_id column carries a unique index, so more than one match
// means the index was bypassed and the data can no longer be trusted.
func (r *AccountRepository) GetAccountByPaymentID(ctx context.Context, q repository.DBExecutor, paymentID string) (*domain.Account, error) {
	accounts := []domain.Account{}
	query := `SELECT id, identity, display_name, email, payment_id, balance, version, last_interest_at, created_at, updated_at
              FROM accounts WHERE payment_id = $1`
	err := q.SelectContext(ctx, &accounts, query, domain.NormalizePaymentID(paymentID))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payment ID '%s': %w", paymentID, err)
	}
	switch len(accounts) {
	case 0:
		return nil, util.ErrNotFound
	case 1:
		return &accounts[0], nil
	default:
		return nil, fmt.Errorf("payment ID '%s' matches %d accounts: %w", paymentID, len(accounts), util.ErrInconsistent)
	}
}

// ApplyBalanceChange adds delta to the balance under version and
// non-negativity guards. Zero rows affected means another writer got
// there first or the guard failed.
func (r *AccountRepository) ApplyBalanceChange(ctx context.Context, q repository.DBExecutor, accountID int64, delta decimal.Decimal, expectedVersion int64) error {
	query := `UPDATE accounts
              SET balance = balance + $1, version = version + 1, updated_at = $2
              WHERE id = $3 AND version = $4 AND balance + $1 >= 0`
	result, err := q.ExecContext(ctx, query, delta, time.Now().UTC(), accountID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to apply balance change to account %d: %w", accountID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for account %d: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance change rejected for account %d: %w", accountID, util.ErrConflict)
	}
	return nil
}

// ApplyInterest credits interest and advances last_interest_at in one
// guarded update.
func (r *AccountRepository) ApplyInterest(ctx context.Context, q repository.DBExecutor, accountID int64, interest decimal.Decimal, asOf time.Time, expectedVersion int64) error {
	query := `UPDATE accounts
              SET balance = balance + $1, last_interest_at = $2, version = version + 1, updated_at = $3
              WHERE id = $4 AND version = $5`
	result, err := q.ExecContext(ctx, query, interest, asOf, time.Now().UTC(), accountID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to apply interest to account %d: %w", accountID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for account %d: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("interest application rejected for account %d: %w", accountID, util.ErrConflict)
	}
	return nil
}

// Stats returns the account count and the sum of all balances.
func (r *AccountRepository) Stats(ctx context.Context, q repository.DBExecutor) (int64, decimal.Decimal, error) {
	var stats struct {
		Count int64           `db:"count"`
		Total decimal.Decimal `db:"total"`
	}
	query := `SELECT COUNT(*) AS count, COALESCE(SUM(balance), 0) AS total FROM accounts`
	if err := q.GetContext(ctx, &stats, query); err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to collect account stats: %w", err)
	}
	return stats.Count, stats.Total, nil
}
