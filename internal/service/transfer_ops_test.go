// internal/service/transfer_ops_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"payflow/internal/domain"
	"payflow/internal/util"
)

func decimalEq(expected decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(40)

	sender := func() *domain.Account {
		return &domain.Account{
			ID:        1,
			PaymentID: "alice@payflow",
			Balance:   decimal.NewFromInt(100),
			Version:   5,
		}
	}
	receiver := func() *domain.Account {
		return &domain.Account{
			ID:        2,
			PaymentID: "bob@payflow",
			Balance:   decimal.NewFromInt(10),
			Version:   3,
		}
	}

	t.Run("SuccessfulTransfer", func(t *testing.T) {
		svc, m := newTestService(t)

		updatedSender := &domain.Account{
			ID:        1,
			PaymentID: "alice@payflow",
			Balance:   decimal.NewFromInt(60),
			Version:   6,
		}

		// No prior attempt under this request ID, before or after the lock.
		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-1").
			Return(nil, util.ErrNotFound).Twice()

		// Pre-checks on the pool executor.
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Once()
		m.accountRepo.On("GetAccountByPaymentID", ctx, mock.Anything, "bob@payflow").Return(receiver(), nil).Once()

		var claimed *domain.Transfer
		m.transferRepo.On("CreateTransfer", ctx, mock.Anything, mock.AnythingOfType("*domain.Transfer")).
			Run(func(args mock.Arguments) {
				claimed = args.Get(2).(*domain.Transfer)
			}).Return(nil).Once()

		// Inside the money transaction.
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Once()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(2)).Return(receiver(), nil).Once()
		m.accountRepo.On("ApplyBalanceChange", ctx, mock.Anything, int64(1), decimalEq(amount.Neg()), int64(5)).Return(nil).Once()
		m.accountRepo.On("ApplyBalanceChange", ctx, mock.Anything, int64(2), decimalEq(amount), int64(3)).Return(nil).Once()

		var entries []*domain.LedgerEntry
		m.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).
			Run(func(args mock.Arguments) {
				entries = append(entries, args.Get(2).(*domain.LedgerEntry))
			}).Return(nil).Twice()

		m.transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, mock.AnythingOfType("string"),
			domain.TransferStatusPending, domain.TransferStatusCompleted, "", mock.AnythingOfType("*time.Time")).
			Return(nil).Once()
		m.outboxRepo.On("CreateMessage", ctx, mock.Anything, mock.AnythingOfType("*domain.OutboxMessage")).Return(nil).Once()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(updatedSender, nil).Once()

		m.txController.On("Commit").Return(nil).Once()
		m.txController.On("Rollback").Return(nil).Maybe()

		result, err := svc.Transfer(ctx, "req-1", 1, "Bob@PayFlow", amount, "")

		assert.NoError(t, err)
		assert.False(t, result.Replayed)
		assert.Equal(t, domain.TransferStatusCompleted, result.Transfer.Status)
		assert.NotNil(t, result.Transfer.CompletedAt)
		assert.True(t, result.Sender.Balance.Equal(decimal.NewFromInt(60)))

		assert.Equal(t, "req-1", claimed.RequestID)
		assert.Equal(t, "bob@payflow", claimed.ToPaymentID)

		// One DEBIT against the sender, one CREDIT against the receiver,
		// both referencing the same transfer and carrying default notes.
		assert.Len(t, entries, 2)
		debit, credit := entries[0], entries[1]
		assert.Equal(t, domain.EntryDirectionDebit, debit.Direction)
		assert.Equal(t, int64(1), debit.AccountID)
		assert.Equal(t, "bob@payflow", debit.Counterparty)
		assert.Equal(t, "Payment", debit.Note)
		assert.Equal(t, domain.EntryDirectionCredit, credit.Direction)
		assert.Equal(t, int64(2), credit.AccountID)
		assert.Equal(t, "alice@payflow", credit.Counterparty)
		assert.Equal(t, "Received Payment", credit.Note)
		assert.Equal(t, debit.TransferNo, credit.TransferNo)
		assert.True(t, debit.Amount.Equal(amount))
		assert.True(t, credit.Amount.Equal(amount))

		assert.Equal(t, 1, m.locker.acquired)
		assert.Equal(t, 1, m.locker.released)
		m.assertExpectations(t)
	})

	t.Run("InvalidAmountHasNoSideEffects", func(t *testing.T) {
		svc, m := newTestService(t)

		for _, bad := range []decimal.Decimal{
			decimal.NewFromInt(-5),
			decimal.Zero,
			decimal.RequireFromString("0.001"),
		} {
			result, err := svc.Transfer(ctx, "req-2", 1, "bob@payflow", bad, "")
			assert.ErrorIs(t, err, util.ErrInvalidInput)
			assert.Nil(t, result)
		}

		m.transferRepo.AssertNotCalled(t, "GetTransferByRequestID", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 0, m.locker.acquired)
		m.assertExpectations(t)
	})

	t.Run("MissingRequestIDIsRejected", func(t *testing.T) {
		svc, m := newTestService(t)

		result, err := svc.Transfer(ctx, "", 1, "bob@payflow", amount, "")

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		assert.Nil(t, result)
		m.assertExpectations(t)
	})

	t.Run("ReplayedRequestReturnsRecordedOutcome", func(t *testing.T) {
		svc, m := newTestService(t)

		prior := &domain.Transfer{
			TransferNo: "TRF-prior",
			RequestID:  "req-3",
			Status:     domain.TransferStatusCompleted,
		}
		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-3").Return(prior, nil).Once()

		result, err := svc.Transfer(ctx, "req-3", 1, "bob@payflow", amount, "")

		assert.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, prior, result.Transfer)
		assert.Nil(t, result.Sender)
		assert.Equal(t, 0, m.locker.acquired)
		m.accountRepo.AssertNotCalled(t, "GetAccountByID", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		svc, m := newTestService(t)

		poor := sender()
		poor.Balance = decimal.NewFromInt(10)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-4").
			Return(nil, util.ErrNotFound).Twice()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(poor, nil).Once()

		result, err := svc.Transfer(ctx, "req-4", 1, "bob@payflow", amount, "")

		assert.ErrorIs(t, err, util.ErrInsufficientFunds)
		assert.Nil(t, result)
		m.transferRepo.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("UnknownRecipient", func(t *testing.T) {
		svc, m := newTestService(t)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-5").
			Return(nil, util.ErrNotFound).Twice()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Once()
		m.accountRepo.On("GetAccountByPaymentID", ctx, mock.Anything, "ghost@payflow").
			Return(nil, util.ErrNotFound).Once()

		result, err := svc.Transfer(ctx, "req-5", 1, "ghost@payflow", amount, "")

		assert.ErrorIs(t, err, util.ErrRecipientNotFound)
		assert.Nil(t, result)
		m.transferRepo.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("SelfTransferIsRejected", func(t *testing.T) {
		svc, m := newTestService(t)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-6").
			Return(nil, util.ErrNotFound).Twice()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Once()

		result, err := svc.Transfer(ctx, "req-6", 1, " Alice@PayFlow ", amount, "")

		assert.ErrorIs(t, err, util.ErrSelfTransfer)
		assert.Nil(t, result)
		m.accountRepo.AssertNotCalled(t, "GetAccountByPaymentID", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("DebitConflictFailsTheClaim", func(t *testing.T) {
		svc, m := newTestService(t)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-7").
			Return(nil, util.ErrNotFound).Twice()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Twice()
		m.accountRepo.On("GetAccountByPaymentID", ctx, mock.Anything, "bob@payflow").Return(receiver(), nil).Once()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(2)).Return(receiver(), nil).Once()
		m.transferRepo.On("CreateTransfer", ctx, mock.Anything, mock.AnythingOfType("*domain.Transfer")).Return(nil).Once()

		m.accountRepo.On("ApplyBalanceChange", ctx, mock.Anything, int64(1), decimalEq(amount.Neg()), int64(5)).
			Return(util.ErrConflict).Once()

		// The claim is settled FAILED outside the rolled-back transaction.
		m.transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, mock.AnythingOfType("string"),
			domain.TransferStatusPending, domain.TransferStatusFailed, "debit conflict", (*time.Time)(nil)).
			Return(nil).Once()

		m.txController.On("Rollback").Return(nil)

		result, err := svc.Transfer(ctx, "req-7", 1, "bob@payflow", amount, "")

		assert.ErrorIs(t, err, util.ErrConflict)
		assert.Nil(t, result)
		m.txController.AssertNotCalled(t, "Commit")
		m.entryRepo.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("AmbiguousCommitGoesUnderReview", func(t *testing.T) {
		svc, m := newTestService(t)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-8").
			Return(nil, util.ErrNotFound).Twice()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Twice()
		m.accountRepo.On("GetAccountByPaymentID", ctx, mock.Anything, "bob@payflow").Return(receiver(), nil).Once()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(2)).Return(receiver(), nil).Once()

		var claimed *domain.Transfer
		m.transferRepo.On("CreateTransfer", ctx, mock.Anything, mock.AnythingOfType("*domain.Transfer")).
			Run(func(args mock.Arguments) {
				claimed = args.Get(2).(*domain.Transfer)
			}).Return(nil).Once()
		m.accountRepo.On("ApplyBalanceChange", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()
		m.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Twice()
		m.transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, mock.AnythingOfType("string"),
			domain.TransferStatusPending, domain.TransferStatusCompleted, "", mock.AnythingOfType("*time.Time")).
			Return(nil).Once()
		m.outboxRepo.On("CreateMessage", ctx, mock.Anything, mock.AnythingOfType("*domain.OutboxMessage")).Return(nil).Once()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Once()

		m.txController.On("Commit").Return(errors.New("connection reset")).Once()
		m.txController.On("Rollback").Return(nil)

		// The outcome is unknown, so the claim is parked UNDER_REVIEW
		// for the reconciler rather than being marked FAILED.
		m.transferRepo.On("UpdateTransferStatus", ctx, mock.Anything, mock.AnythingOfType("string"),
			domain.TransferStatusPending, domain.TransferStatusUnderReview, "", (*time.Time)(nil)).
			Return(nil).Once()

		result, err := svc.Transfer(ctx, "req-8", 1, "bob@payflow", amount, "")

		assert.ErrorIs(t, err, util.ErrPaymentUnderReview)
		assert.Nil(t, result)
		assert.Equal(t, domain.TransferStatusUnderReview, claimed.Status)

		m.transferRepo.AssertNotCalled(t, "UpdateTransferStatus", mock.Anything, mock.Anything, mock.Anything,
			domain.TransferStatusPending, domain.TransferStatusFailed, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("DuplicateClaimIsConflict", func(t *testing.T) {
		svc, m := newTestService(t)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-9").
			Return(nil, util.ErrNotFound).Twice()
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(1)).Return(sender(), nil).Once()
		m.accountRepo.On("GetAccountByPaymentID", ctx, mock.Anything, "bob@payflow").Return(receiver(), nil).Once()
		m.transferRepo.On("CreateTransfer", ctx, mock.Anything, mock.AnythingOfType("*domain.Transfer")).
			Return(util.ErrDuplicateEntry).Once()

		result, err := svc.Transfer(ctx, "req-9", 1, "bob@payflow", amount, "")

		assert.ErrorIs(t, err, util.ErrConflict)
		assert.Nil(t, result)
		m.dbBeginner.AssertNotCalled(t, "BeginTxx", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})
}

func TestValidAmount(t *testing.T) {
	valid := []string{"40", "40.5", "0.01", "40.000", "1000.100"}
	for _, s := range valid {
		assert.True(t, validAmount(decimal.RequireFromString(s)), "%s should be accepted", s)
	}

	invalid := []string{"0", "-5", "0.001", "40.005"}
	for _, s := range invalid {
		assert.False(t, validAmount(decimal.RequireFromString(s)), "%s should be rejected", s)
	}
}

func TestGetTransferStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		svc, m := newTestService(t)

		transfer := &domain.Transfer{TransferNo: "TRF-1", RequestID: "req-1", Status: domain.TransferStatusCompleted}
		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-1").Return(transfer, nil).Once()

		result, err := svc.GetTransferStatus(ctx, "req-1")

		assert.NoError(t, err)
		assert.Equal(t, transfer, result)
		m.assertExpectations(t)
	})

	t.Run("Unknown", func(t *testing.T) {
		svc, m := newTestService(t)

		m.transferRepo.On("GetTransferByRequestID", ctx, mock.Anything, "req-x").Return(nil, util.ErrNotFound).Once()

		result, err := svc.GetTransferStatus(ctx, "req-x")

		assert.ErrorIs(t, err, util.ErrTransferNotFound)
		assert.Nil(t, result)
		m.assertExpectations(t)
	})
}
