// internal/repository/postgres/entry_pg.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
	"payflow/internal/repository"
)

// EntryRepository implements repository.EntryRepository for PostgreSQL.
type EntryRepository struct{}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *sqlx.DB) repository.EntryRepository {
	return &EntryRepository{}
}

// CreateEntry appends a new ledger entry using the provided DBExecutor.
func (r *EntryRepository) CreateEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (account_id, direction, amount, counterparty, note, status, transfer_no, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		entry.AccountID,
		entry.Direction,
		entry.Amount,
		entry.Counterparty,
		entry.Note,
		entry.Status,
		entry.TransferNo,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// ListEntriesByAccount retrieves a paginated ledger for one account,
// newest first, plus the total entry count.
func (r *EntryRepository) ListEntriesByAccount(ctx context.Context, q repository.DBExecutor, accountID int64, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	entries := []domain.LedgerEntry{}
	query := `
		SELECT id, account_id, direction, amount, counterparty, note, status, transfer_no, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &entries, query, accountID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger entries for account %d: %w", accountID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, accountID); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries for account %d: %w", accountID, err)
	}

	return entries, totalCount, nil
}

// EntriesExistForTransfer reports whether any ledger entries carry the
// given transfer reference.
func (r *EntryRepository) EntriesExistForTransfer(ctx context.Context, q repository.DBExecutor, transferNo string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE transfer_no = $1)`
	if err := q.GetContext(ctx, &exists, query, transferNo); err != nil {
		return false, fmt.Errorf("failed to check entries for transfer %s: %w", transferNo, err)
	}
	return exists, nil
}
