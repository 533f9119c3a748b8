// internal/repository/entry_repo.go
package repository

import (
	"context"

	"payflow/internal/domain"
)

// EntryRepository defines the interface for ledger entry operations.
// The ledger is append-only: there is deliberately no update or delete.
type EntryRepository interface {
	// CreateEntry appends a new ledger entry.
	CreateEntry(ctx context.Context, q DBExecutor, entry *domain.LedgerEntry) error
	// ListEntriesByAccount retrieves an account's ledger newest-first,
	// along with the total entry count for pagination.
	ListEntriesByAccount(ctx context.Context, q DBExecutor, accountID int64, limit, offset int) ([]domain.LedgerEntry, int64, error)
	// EntriesExistForTransfer reports whether any entries were committed
	// under the given transfer reference. Used by the reconciler to
	// settle transfers whose commit outcome was ambiguous.
	EntriesExistForTransfer(ctx context.Context, q DBExecutor, transferNo string) (bool, error)
}
