// internal/job/transfer_reconciler.go
package job

import (
	"context"
	"log/slog"
	"time"

	"payflow/internal/domain"
	"payflow/internal/repository"
)

// TransferReconciler settles transfer claims whose commit outcome was
// never confirmed: a PENDING or UNDER_REVIEW claim older than the
// review window is resolved from what actually reached the store. If the transfer's
// ledger entries exist the money moved and the claim is completed;
// if they do not, nothing moved and the claim is failed. Either way
// the caller's status query stops saying "under review".
type TransferReconciler struct {
	dbExecutor   repository.DBExecutor
	transferRepo repository.TransferRepository
	entryRepo    repository.EntryRepository
	logger       *slog.Logger
	reviewAfter  time.Duration
	interval     time.Duration
	batchSize    int
}

// NewTransferReconciler creates a new TransferReconciler.
func NewTransferReconciler(dbExecutor repository.DBExecutor, transferRepo repository.TransferRepository, entryRepo repository.EntryRepository, reviewAfter time.Duration, logger *slog.Logger) *TransferReconciler {
	return &TransferReconciler{
		dbExecutor:   dbExecutor,
		transferRepo: transferRepo,
		entryRepo:    entryRepo,
		logger:       logger,
		reviewAfter:  reviewAfter,
		interval:     30 * time.Second,
		batchSize:    50,
	}
}

// Start runs the reconciliation loop until ctx is cancelled.
func (r *TransferReconciler) Start(ctx context.Context) {
	r.logger.Info("Transfer reconciler started", "review_after", r.reviewAfter)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Transfer reconciler stopped")
			return
		case <-ticker.C:
			r.ReconcileStale(ctx)
		}
	}
}

// ReconcileStale settles one batch of stale pending transfers.
func (r *TransferReconciler) ReconcileStale(ctx context.Context) {
	before := time.Now().UTC().Add(-r.reviewAfter)
	transfers, err := r.transferRepo.ListStalePending(ctx, r.dbExecutor, before, r.batchSize)
	if err != nil {
		r.logger.Error("Failed to list stale pending transfers", "error", err)
		return
	}

	for i := range transfers {
		r.settle(ctx, &transfers[i])
	}
}

func (r *TransferReconciler) settle(ctx context.Context, transfer *domain.Transfer) {
	committed, err := r.entryRepo.EntriesExistForTransfer(ctx, r.dbExecutor, transfer.TransferNo)
	if err != nil {
		r.logger.Error("Failed to check ledger entries for transfer", "transfer_no", transfer.TransferNo, "error", err)
		return
	}

	if committed {
		now := time.Now().UTC()
		err = r.transferRepo.UpdateTransferStatus(ctx, r.dbExecutor, transfer.TransferNo,
			transfer.Status, domain.TransferStatusCompleted, "", &now)
		if err != nil {
			r.logger.Error("Failed to complete reconciled transfer", "transfer_no", transfer.TransferNo, "error", err)
			return
		}
		r.logger.Info("Reconciled transfer as completed", "transfer_no", transfer.TransferNo)
		return
	}

	err = r.transferRepo.UpdateTransferStatus(ctx, r.dbExecutor, transfer.TransferNo,
		transfer.Status, domain.TransferStatusFailed, "commit never reached the store", nil)
	if err != nil {
		r.logger.Error("Failed to fail reconciled transfer", "transfer_no", transfer.TransferNo, "error", err)
		return
	}
	r.logger.Info("Reconciled transfer as failed", "transfer_no", transfer.TransferNo)
}
