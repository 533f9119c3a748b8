// internal/repository/postgres/transfer_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
	"payflow/internal/repository"
	"payflow/internal/util"
)

// TransferRepository implements repository.TransferRepository for PostgreSQL.
type TransferRepository struct{}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(db *sqlx.DB) repository.TransferRepository {
	return &TransferRepository{}
}

// CreateTransfer inserts a new transfer claim using the provided DBExecutor.
// The unique index on request_id makes this the idempotency gate: the
// second claim for the same request fails here instead of moving money.
func (r *TransferRepository) CreateTransfer(ctx context.Context, q repository.DBExecutor, transfer *domain.Transfer) error {
	query := `INSERT INTO transfers (transfer_no, request_id, from_account_id, to_payment_id, amount, note, status, fail_reason, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		transfer.TransferNo,
		transfer.RequestID,
		transfer.FromAccountID,
		transfer.ToPaymentID,
		transfer.Amount,
		transfer.Note,
		transfer.Status,
		transfer.FailReason,
		transfer.CreatedAt,
	).Scan(&transfer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("request ID '%s' already claimed: %w", transfer.RequestID, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// GetTransferByRequestID retrieves a transfer by its idempotency key.
func (r *TransferRepository) GetTransferByRequestID(ctx context.Context, q repository.DBExecutor, requestID string) (*domain.Transfer, error) {
	var transfer domain.Transfer
	query := `SELECT id, transfer_no, request_id, from_account_id, to_payment_id, amount, note, status, fail_reason, created_at, completed_at
              FROM transfers WHERE request_id = $1`
	err := q.GetContext(ctx, &transfer, query, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transfer by request ID '%s': %w", requestID, err)
	}
	return &transfer, nil
}

// UpdateTransferStatus moves a transfer between statuses. The WHERE
// clause pins the expected current status so two settlers cannot both
// win.
func (r *TransferRepository) UpdateTransferStatus(ctx context.Context, q repository.DBExecutor, transferNo string, from, to domain.TransferStatus, failReason string, completedAt *time.Time) error {
	query := `UPDATE transfers SET status = $1, fail_reason = $2, completed_at = $3
              WHERE transfer_no = $4 AND status = $5`
	result, err := q.ExecContext(ctx, query, to, failReason, completedAt, transferNo, from)
	if err != nil {
		return fmt.Errorf("failed to update transfer %s status: %w", transferNo, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for transfer %s: %w", transferNo, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transfer %s is not in status %s: %w", transferNo, from, util.ErrConflict)
	}
	return nil
}

// ListStalePending returns unsettled transfers (PENDING or UNDER_REVIEW)
// created before the given time, oldest first.
func (r *TransferRepository) ListStalePending(ctx context.Context, q repository.DBExecutor, before time.Time, limit int) ([]domain.Transfer, error) {
	transfers := []domain.Transfer{}
	query := `SELECT id, transfer_no, request_id, from_account_id, to_payment_id, amount, note, status, fail_reason, created_at, completed_at
              FROM transfers
              WHERE status IN ($1, $2) AND created_at < $3
              ORDER BY created_at ASC
              LIMIT $4`
	if err := q.SelectContext(ctx, &transfers, query, domain.TransferStatusPending, domain.TransferStatusUnderReview, before, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale pending transfers: %w", err)
	}
	return transfers, nil
}
