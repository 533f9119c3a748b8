// internal/repository/transfer_repo.go
package repository

import (
	"context"
	"time"

	"payflow/internal/domain"
)

// TransferRepository defines the interface for transfer attempt records.
type TransferRepository interface {
	// CreateTransfer inserts a new transfer claim. Returns
	// util.ErrDuplicateEntry (wrapped) when the request ID was already
	// claimed.
	CreateTransfer(ctx context.Context, q DBExecutor, transfer *domain.Transfer) error
	// GetTransferByRequestID retrieves a transfer by its idempotency key.
	GetTransferByRequestID(ctx context.Context, q DBExecutor, requestID string) (*domain.Transfer, error)
	// UpdateTransferStatus moves a transfer from one status to another.
	// The update only applies when the current status matches from;
	// util.ErrConflict is returned otherwise.
	UpdateTransferStatus(ctx context.Context, q DBExecutor, transferNo string, from, to domain.TransferStatus, failReason string, completedAt *time.Time) error
	// ListStalePending returns unsettled transfers (PENDING or
	// UNDER_REVIEW) that were created before the given time.
	ListStalePending(ctx context.Context, q DBExecutor, before time.Time, limit int) ([]domain.Transfer, error)
}
