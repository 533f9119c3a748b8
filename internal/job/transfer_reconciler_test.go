// internal/job/transfer_reconciler_test.go
package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"payflow/internal/domain"
)

func TestTransferReconcilerReconcileStale(t *testing.T) {
	ctx := context.Background()

	t.Run("CommittedTransferIsCompleted", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		entryRepo := new(MockEntryRepository)
		dbExecutor := new(MockDBExecutor)

		stale := []domain.Transfer{{TransferNo: "TRF-1", Status: domain.TransferStatusPending}}
		transferRepo.On("ListStalePending", ctx, mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return(stale, nil).Once()
		entryRepo.On("EntriesExistForTransfer", ctx, mock.Anything, "TRF-1").Return(true, nil).Once()
		transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, "TRF-1",
			domain.TransferStatusPending, domain.TransferStatusCompleted, "", mock.AnythingOfType("*time.Time")).
			Return(nil).Once()

		reconciler := NewTransferReconciler(dbExecutor, transferRepo, entryRepo, 5*time.Minute, testLogger())
		reconciler.ReconcileStale(ctx)

		mock.AssertExpectationsForObjects(t, transferRepo, entryRepo)
	})

	t.Run("UncommittedTransferIsFailed", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		entryRepo := new(MockEntryRepository)
		dbExecutor := new(MockDBExecutor)

		stale := []domain.Transfer{{TransferNo: "TRF-2", Status: domain.TransferStatusPending}}
		transferRepo.On("ListStalePending", ctx, mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return(stale, nil).Once()
		entryRepo.On("EntriesExistForTransfer", ctx, mock.Anything, "TRF-2").Return(false, nil).Once()
		transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, "TRF-2",
			domain.TransferStatusPending, domain.TransferStatusFailed, "commit never reached the store", (*time.Time)(nil)).
			Return(nil).Once()

		reconciler := NewTransferReconciler(dbExecutor, transferRepo, entryRepo, 5*time.Minute, testLogger())
		reconciler.ReconcileStale(ctx)

		mock.AssertExpectationsForObjects(t, transferRepo, entryRepo)
	})

	t.Run("UnderReviewClaimIsSettled", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		entryRepo := new(MockEntryRepository)
		dbExecutor := new(MockDBExecutor)

		stale := []domain.Transfer{{TransferNo: "TRF-3", Status: domain.TransferStatusUnderReview}}
		transferRepo.On("ListStalePending", ctx, mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return(stale, nil).Once()
		entryRepo.On("EntriesExistForTransfer", ctx, mock.Anything, "TRF-3").Return(true, nil).Once()
		transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, "TRF-3",
			domain.TransferStatusUnderReview, domain.TransferStatusCompleted, "", mock.AnythingOfType("*time.Time")).
			Return(nil).Once()

		reconciler := NewTransferReconciler(dbExecutor, transferRepo, entryRepo, 5*time.Minute, testLogger())
		reconciler.ReconcileStale(ctx)

		mock.AssertExpectationsForObjects(t, transferRepo, entryRepo)
	})

	t.Run("NothingStaleIsQuiet", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		entryRepo := new(MockEntryRepository)
		dbExecutor := new(MockDBExecutor)

		transferRepo.On("ListStalePending", ctx, mock.Anything, mock.AnythingOfType("time.Time"), 50).
			Return([]domain.Transfer{}, nil).Once()

		reconciler := NewTransferReconciler(dbExecutor, transferRepo, entryRepo, 5*time.Minute, testLogger())
		reconciler.ReconcileStale(ctx)

		entryRepo.AssertNotCalled(t, "EntriesExistForTransfer", mock.Anything, mock.Anything, mock.Anything)
		mock.AssertExpectationsForObjects(t, transferRepo, entryRepo)
	})
}
