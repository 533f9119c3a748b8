// internal/service/advisory_test.go
package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"payflow/internal/domain"
	"payflow/internal/util"
)

func TestAdvisorySummary(t *testing.T) {
	ctx := context.Background()

	t.Run("BalanceAndRecentActivity", func(t *testing.T) {
		svc, m := newTestService(t)

		account := &domain.Account{ID: 7, Balance: decimal.RequireFromString("60.5")}
		entries := []domain.LedgerEntry{
			{Direction: domain.EntryDirectionDebit, Amount: decimal.NewFromInt(40), Counterparty: "bob@payflow", Note: "Payment"},
			{Direction: domain.EntryDirectionCredit, Amount: decimal.NewFromInt(30), Counterparty: "bank@payflow", Note: "Welcome Bonus"},
		}
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(7)).Return(account, nil).Once()
		m.entryRepo.On("ListEntriesByAccount", ctx, mock.Anything, int64(7), advisorySummaryEntries, 0).
			Return(entries, int64(2), nil).Once()

		summary, err := svc.AdvisorySummary(ctx, 7)

		assert.NoError(t, err)
		assert.Equal(t, "Current balance: 60.50."+
			" Recent transactions:"+
			" 40.00 sent to bob@payflow (Payment);"+
			" 30.00 received from bank@payflow (Welcome Bonus).", summary)
		m.assertExpectations(t)
	})

	t.Run("NoActivity", func(t *testing.T) {
		svc, m := newTestService(t)

		account := &domain.Account{ID: 7, Balance: decimal.NewFromInt(30)}
		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(7)).Return(account, nil).Once()
		m.entryRepo.On("ListEntriesByAccount", ctx, mock.Anything, int64(7), advisorySummaryEntries, 0).
			Return([]domain.LedgerEntry{}, int64(0), nil).Once()

		summary, err := svc.AdvisorySummary(ctx, 7)

		assert.NoError(t, err)
		assert.Equal(t, "Current balance: 30.00. No transactions yet.", summary)
		m.assertExpectations(t)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		svc, m := newTestService(t)

		m.accountRepo.On("GetAccountByID", ctx, mock.Anything, int64(99)).Return(nil, util.ErrNotFound).Once()

		summary, err := svc.AdvisorySummary(ctx, 99)

		assert.ErrorIs(t, err, util.ErrAccountNotFound)
		assert.Empty(t, summary)
		m.assertExpectations(t)
	})
}
