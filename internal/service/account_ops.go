// internal/service/account_ops.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"payflow/internal/domain"
	"payflow/internal/repository"
	"payflow/internal/util"
)

// ResolveOrCreateAccount returns the account for an authenticated
// identity, creating it on first sight. Creation credits the welcome
// bonus and appends the matching CREDIT entry in the same transaction,
// so the bonus can never exist without its ledger record or vice versa.
func (s *ledgerService) ResolveOrCreateAccount(ctx context.Context, identity, email, displayName string) (*domain.Account, bool, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, false, util.ErrInvalidInput
	}

	account, err := s.accountRepo.GetAccountByIdentity(ctx, s.dbExecutor, identity)
	if err == nil {
		return account, false, nil
	}
	if !util.IsError(err, util.ErrNotFound) {
		return nil, false, fmt.Errorf("resolve account: failed to look up identity: %w", err)
	}

	paymentID := domain.DerivePaymentID(email, identity, s.cfg.PaymentIDSuffix)

	// The payment_id unique index is the uniqueness authority. On a
	// collision with another user's derived ID, retry with a random
	// short suffix on the local part.
	for attempt := 0; attempt < 3; attempt++ {
		account, err = s.createAccount(ctx, identity, email, displayName, paymentID)
		if err == nil {
			return account, true, nil
		}
		if !util.IsError(err, util.ErrDuplicateEntry) {
			return nil, false, err
		}

		// Either we lost a creation race for this identity, or the
		// payment ID is taken. Re-reading the identity disambiguates.
		existing, lookupErr := s.accountRepo.GetAccountByIdentity(ctx, s.dbExecutor, identity)
		if lookupErr == nil {
			return existing, false, nil
		}
		if !util.IsError(lookupErr, util.ErrNotFound) {
			return nil, false, fmt.Errorf("resolve account: failed to re-check identity: %w", lookupErr)
		}
		paymentID = suffixPaymentID(paymentID)
	}
	return nil, false, fmt.Errorf("resolve account: could not allocate a unique payment ID: %w", util.ErrConflict)
}

// createAccount inserts the account, its welcome bonus entry and the
// account-created event in one transaction.
func (s *ledgerService) createAccount(ctx context.Context, identity, email, displayName, paymentID string) (*domain.Account, error) {
	account := domain.NewAccount(identity, displayName, email, paymentID, s.cfg.WelcomeBonus)

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("create account: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("create account: transaction controller does not implement DBExecutor")
	}

	if err := s.accountRepo.CreateAccount(ctx, txExecutor, account); err != nil {
		return nil, err
	}

	entry := domain.NewLedgerEntry(account.ID, domain.EntryDirectionCredit, s.cfg.WelcomeBonus,
		s.cfg.SystemCounterparty, welcomeBonusNote, newReference("BON"))
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
		return nil, fmt.Errorf("create account: failed to record welcome bonus entry: %w", err)
	}

	event := &domain.LedgerEvent{
		Type:       domain.EventTypeAccountCreated,
		AccountID:  account.ID,
		Amount:     s.cfg.WelcomeBonus,
		OccurredAt: account.CreatedAt,
	}
	if err := s.stageEvent(ctx, txExecutor, account.PaymentID, event); err != nil {
		return nil, fmt.Errorf("create account: failed to stage event: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("create account: failed to commit transaction: %w", err)
	}

	s.logger.Info("Account created", "account_id", account.ID, "payment_id", account.PaymentID)
	return account, nil
}

// suffixPaymentID appends a short random tag to the local part of a
// colliding payment ID, preserving the domain suffix.
func suffixPaymentID(paymentID string) string {
	local, domainPart := paymentID, ""
	if at := strings.LastIndex(paymentID, "@"); at >= 0 {
		local, domainPart = paymentID[:at], paymentID[at:]
	}
	return local + "-" + uuid.NewString()[:4] + domainPart
}

// ApplyInterestIfDue accrues simple daily interest for the whole days
// elapsed since the account's last accrual, appending one CREDIT entry
// from the system counterparty when the computed interest is positive.
//
// Idempotence: the accrual anchor advances to now in the same guarded
// update that credits the interest, so a second run within the same
// day sees zero whole days elapsed and is a no-op. The per-account
// lock plus the version check keep two concurrent session loads from
// both crediting.
func (s *ledgerService) ApplyInterestIfDue(ctx context.Context, accountID int64) (*domain.Account, error) {
	lock := s.lockFor(accountID)
	if err := lock.Acquire(ctx, lockRetryInterval, lockMaxRetries); err != nil {
		return nil, fmt.Errorf("apply interest: account %d busy: %w", accountID, util.ErrConflict)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.Error("Failed to release account lock", "account_id", accountID, "error", err)
		}
	}()

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("apply interest: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("apply interest: transaction controller does not implement DBExecutor")
	}

	account, err := s.accountRepo.GetAccountByID(ctx, txExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrAccountNotFound
		}
		return nil, fmt.Errorf("apply interest: failed to get account %d: %w", accountID, err)
	}

	now := s.now()
	days, interest := domain.InterestDue(account.Balance, s.cfg.DailyInterestRate, account.LastInterestAt, now)
	if days == 0 {
		return account, nil
	}

	if err := s.accountRepo.ApplyInterest(ctx, txExecutor, account.ID, interest, now, account.Version); err != nil {
		return nil, fmt.Errorf("apply interest: failed to credit account %d: %w", accountID, err)
	}

	if interest.IsPositive() {
		entry := domain.NewLedgerEntry(account.ID, domain.EntryDirectionCredit, interest,
			s.cfg.SystemCounterparty, interestPayoutNote, newReference("ACR"))
		if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
			return nil, fmt.Errorf("apply interest: failed to record entry: %w", err)
		}

		event := &domain.LedgerEvent{
			Type:       domain.EventTypeInterestPosted,
			AccountID:  account.ID,
			Amount:     interest,
			OccurredAt: now,
		}
		if err := s.stageEvent(ctx, txExecutor, account.PaymentID, event); err != nil {
			return nil, fmt.Errorf("apply interest: failed to stage event: %w", err)
		}
	}

	updated, err := s.accountRepo.GetAccountByID(ctx, txExecutor, account.ID)
	if err != nil {
		return nil, fmt.Errorf("apply interest: failed to re-fetch account %d: %w", accountID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("apply interest: failed to commit transaction: %w", err)
	}

	s.logger.Info("Interest accrued", "account_id", account.ID, "days", days, "interest", interest.String())
	return updated, nil
}

// GetAccount retrieves one account record.
func (s *ledgerService) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: failed to get account %d: %w", accountID, err)
	}
	return account, nil
}

// ResolvePaymentID resolves a public payment identifier to its account.
func (s *ledgerService) ResolvePaymentID(ctx context.Context, paymentID string) (*domain.Account, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, util.ErrInvalidInput
	}
	account, err := s.accountRepo.GetAccountByPaymentID(ctx, s.dbExecutor, paymentID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("resolve payment ID: %w", err)
	}
	return account, nil
}

// GetStatement retrieves a paginated ledger for one account.
func (s *ledgerService) GetStatement(ctx context.Context, accountID int64, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, 0, err
	}
	entries, totalCount, err := s.entryRepo.ListEntriesByAccount(ctx, s.dbExecutor, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get statement: %w", err)
	}
	return entries, totalCount, nil
}

// AdminStats returns system-wide account and balance totals.
func (s *ledgerService) AdminStats(ctx context.Context) (*Stats, error) {
	count, total, err := s.accountRepo.Stats(ctx, s.dbExecutor)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &Stats{TotalAccounts: count, TotalBalance: total}, nil
}
