// internal/service/transfer_ops.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"payflow/internal/domain"
	"payflow/internal/repository"
	"payflow/internal/util"
)

// Lock acquisition budget for per-account serialization. 30 tries at
// 100ms covers a normal competing transfer; anything slower is treated
// as contention and rejected as a conflict.
const (
	lockRetryInterval = 100 * time.Millisecond
	lockMaxRetries    = 30
)

// Transfer moves amount from the sender to the account owning
// toPaymentID.
//
// The sequence is: validate and resolve with no writes, claim the
// request ID as a durable idempotency record, then perform the debit,
// the credit, both ledger entries and the completion mark in a single
// database transaction. Either everything in that transaction commits
// or nothing does, so a crash can never leave a debited sender without
// the matching credit. An ambiguous commit error leaves the claim
// PENDING and is surfaced as ErrPaymentUnderReview; the reconciler
// settles it from what actually reached the store.
func (s *ledgerService) Transfer(ctx context.Context, requestID string, fromAccountID int64, toPaymentID string, amount decimal.Decimal, note string) (*TransferResult, error) {
	if requestID == "" || !validAmount(amount) {
		return nil, util.ErrInvalidInput
	}

	// Idempotency: a request we have already seen returns its recorded
	// outcome instead of moving money again.
	if prior, err := s.transferRepo.GetTransferByRequestID(ctx, s.dbExecutor, requestID); err == nil {
		return &TransferResult{Transfer: prior, Replayed: true}, nil
	} else if !util.IsError(err, util.ErrNotFound) {
		return nil, fmt.Errorf("transfer: failed to check request ID: %w", err)
	}

	lock := s.lockFor(fromAccountID)
	if err := lock.Acquire(ctx, lockRetryInterval, lockMaxRetries); err != nil {
		return nil, fmt.Errorf("transfer: sender account busy: %w", util.ErrConflict)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Error("Failed to release account lock", "account_id", fromAccountID, "error", err)
		}
	}()

	// Re-check under the lock; a duplicate submission may have won the
	// race between our first check and the lock acquisition.
	if prior, err := s.transferRepo.GetTransferByRequestID(ctx, s.dbExecutor, requestID); err == nil {
		return &TransferResult{Transfer: prior, Replayed: true}, nil
	} else if !util.IsError(err, util.ErrNotFound) {
		return nil, fmt.Errorf("transfer: failed to re-check request ID: %w", err)
	}

	// VALIDATING / RESOLVING: clean rejections leave no state behind.
	sender, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, fromAccountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrAccountNotFound
		}
		return nil, fmt.Errorf("transfer: failed to get sender %d: %w", fromAccountID, err)
	}
	normalizedTo := domain.NormalizePaymentID(toPaymentID)
	if sender.PaymentID == normalizedTo {
		return nil, util.ErrSelfTransfer
	}
	if sender.Balance.LessThan(amount) {
		return nil, util.ErrInsufficientFunds
	}
	receiver, err := s.accountRepo.GetAccountByPaymentID(ctx, s.dbExecutor, normalizedTo)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("transfer: failed to resolve receiver '%s': %w", toPaymentID, err)
	}
	if receiver.ID == sender.ID {
		return nil, util.ErrSelfTransfer
	}

	// Claim the request ID. From here on the attempt is durable and a
	// retry with the same request ID replays this record.
	transfer := domain.NewTransfer(newReference("TRF"), requestID, sender.ID, normalizedTo, amount, note)
	if err := s.transferRepo.CreateTransfer(ctx, s.dbExecutor, transfer); err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			return nil, fmt.Errorf("transfer: request already in flight: %w", util.ErrConflict)
		}
		return nil, fmt.Errorf("transfer: failed to claim request: %w", err)
	}

	result, err := s.executeTransfer(ctx, transfer, sender, receiver, note)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Transfer completed",
		"transfer_no", transfer.TransferNo,
		"from_account", sender.ID,
		"to_account", receiver.ID,
		"amount", transfer.Amount.String())
	return result, nil
}

// executeTransfer runs the DEBITING and CREDITING steps in one database
// transaction against freshly re-read account state.
func (s *ledgerService) executeTransfer(ctx context.Context, transfer *domain.Transfer, sender, receiver *domain.Account, note string) (*TransferResult, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		s.failTransfer(ctx, transfer, "store unavailable")
		return nil, fmt.Errorf("transfer: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		s.failTransfer(ctx, transfer, "store unavailable")
		return nil, fmt.Errorf("transfer: transaction controller does not implement DBExecutor")
	}

	// Re-read both accounts inside the transaction; the pre-checks ran
	// against state that may already be stale.
	sender, err = s.accountRepo.GetAccountByID(ctx, txExecutor, sender.ID)
	if err != nil {
		s.failTransfer(ctx, transfer, "sender vanished")
		return nil, fmt.Errorf("transfer: failed to re-read sender: %w", err)
	}
	if sender.Balance.LessThan(transfer.Amount) {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "insufficient funds")
		return nil, util.ErrInsufficientFunds
	}
	receiver, err = s.accountRepo.GetAccountByID(ctx, txExecutor, receiver.ID)
	if err != nil {
		s.failTransfer(ctx, transfer, "receiver vanished")
		return nil, fmt.Errorf("transfer: failed to re-read receiver: %w", err)
	}

	// DEBITING.
	if err := s.accountRepo.ApplyBalanceChange(ctx, txExecutor, sender.ID, transfer.Amount.Neg(), sender.Version); err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "debit conflict")
		return nil, fmt.Errorf("transfer: debit rejected: %w", err)
	}
	debitNote := note
	if debitNote == "" {
		debitNote = defaultDebitNote
	}
	debitEntry := domain.NewLedgerEntry(sender.ID, domain.EntryDirectionDebit, transfer.Amount,
		receiver.PaymentID, debitNote, transfer.TransferNo)
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, debitEntry); err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "debit entry failed")
		return nil, fmt.Errorf("transfer: failed to record debit entry: %w", err)
	}

	// CREDITING.
	if err := s.accountRepo.ApplyBalanceChange(ctx, txExecutor, receiver.ID, transfer.Amount, receiver.Version); err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "credit conflict")
		return nil, fmt.Errorf("transfer: credit rejected: %w", err)
	}
	creditNote := note
	if creditNote == "" {
		creditNote = defaultCreditNote
	}
	creditEntry := domain.NewLedgerEntry(receiver.ID, domain.EntryDirectionCredit, transfer.Amount,
		sender.PaymentID, creditNote, transfer.TransferNo)
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, creditEntry); err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "credit entry failed")
		return nil, fmt.Errorf("transfer: failed to record credit entry: %w", err)
	}

	// COMPLETE.
	completedAt := s.now()
	if err := s.transferRepo.UpdateTransferStatus(ctx, txExecutor, transfer.TransferNo,
		domain.TransferStatusPending, domain.TransferStatusCompleted, "", &completedAt); err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "completion conflict")
		return nil, fmt.Errorf("transfer: failed to mark complete: %w", err)
	}

	event := &domain.LedgerEvent{
		Type:           domain.EventTypeTransferCompleted,
		TransferNo:     transfer.TransferNo,
		AccountID:      sender.ID,
		CounterpartyID: receiver.ID,
		Amount:         transfer.Amount,
		OccurredAt:     completedAt,
	}
	if err := s.stageEvent(ctx, txExecutor, transfer.TransferNo, event); err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "event staging failed")
		return nil, fmt.Errorf("transfer: failed to stage event: %w", err)
	}

	updatedSender, err := s.accountRepo.GetAccountByID(ctx, txExecutor, sender.ID)
	if err != nil {
		s.rollbackTx(txController)
		s.failTransfer(ctx, transfer, "re-read failed")
		return nil, fmt.Errorf("transfer: failed to re-fetch sender: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		// The commit outcome is unknown: it may or may not have reached
		// the store. Reporting failure here could tell the caller money
		// is safe when it is not, so the claim is parked UNDER_REVIEW
		// for the reconciler. The mark is best effort; if it cannot be
		// written the claim stays PENDING, which the reconciler also
		// picks up.
		s.markUnderReview(ctx, transfer)
		return nil, fmt.Errorf("transfer %s commit outcome unknown: %w", transfer.TransferNo, util.ErrPaymentUnderReview)
	}

	transfer.Status = domain.TransferStatusCompleted
	transfer.CompletedAt = &completedAt
	return &TransferResult{Transfer: transfer, Sender: updatedSender}, nil
}

// markUnderReview parks a claim whose commit outcome is unknown. A
// zero-row update means the commit actually landed (the row is already
// COMPLETED), which the caller's status query will report.
func (s *ledgerService) markUnderReview(ctx context.Context, transfer *domain.Transfer) {
	err := s.transferRepo.UpdateTransferStatus(ctx, s.dbExecutor, transfer.TransferNo,
		domain.TransferStatusPending, domain.TransferStatusUnderReview, "", nil)
	if err != nil {
		s.logger.Error("Failed to park transfer under review",
			"transfer_no", transfer.TransferNo, "error", err)
		return
	}
	transfer.Status = domain.TransferStatusUnderReview
}

// failTransfer marks a claimed transfer FAILED outside the money
// transaction. The ledger was not touched (the transaction rolled
// back), so this records a clean rejection.
func (s *ledgerService) failTransfer(ctx context.Context, transfer *domain.Transfer, reason string) {
	err := s.transferRepo.UpdateTransferStatus(ctx, s.dbExecutor, transfer.TransferNo,
		domain.TransferStatusPending, domain.TransferStatusFailed, reason, nil)
	if err != nil {
		s.logger.Error("Failed to mark transfer failed",
			"transfer_no", transfer.TransferNo, "reason", reason, "error", err)
		return
	}
	transfer.Status = domain.TransferStatusFailed
	transfer.FailReason = reason
}

// GetTransferStatus reports the recorded outcome of a transfer attempt.
func (s *ledgerService) GetTransferStatus(ctx context.Context, requestID string) (*domain.Transfer, error) {
	transfer, err := s.transferRepo.GetTransferByRequestID(ctx, s.dbExecutor, requestID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrTransferNotFound
		}
		return nil, fmt.Errorf("get transfer status: %w", err)
	}
	return transfer, nil
}
