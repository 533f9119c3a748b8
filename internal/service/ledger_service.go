// internal/service/ledger_service.go
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payflow/internal/config"
	"payflow/internal/domain"
	"payflow/internal/repository"
	"payflow/pkg/db"
)

// Default notes recorded on transfer entries when the caller supplies
// none.
const (
	defaultDebitNote   = "Payment"
	defaultCreditNote  = "Received Payment"
	interestPayoutNote = "Daily Interest Payout"
	welcomeBonusNote   = "Welcome Bonus"
)

// Locker serializes balance mutations for one account. Implemented by
// redislock.Lock; faked in tests.
type Locker interface {
	Acquire(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Release(ctx context.Context) error
}

// LockFactory builds a Locker scoped to one account.
type LockFactory func(accountID int64) Locker

// Stats summarizes the whole ledger for the admin surface.
type Stats struct {
	TotalAccounts int64           `json:"total_accounts"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

// TransferResult reports a settled or replayed transfer to the caller.
// Sender is nil when the outcome was replayed from an earlier attempt
// and the balance was not re-read.
type TransferResult struct {
	Transfer *domain.Transfer
	Sender   *domain.Account
	Replayed bool
}

// LedgerService defines the ledger mutation engine exposed to the
// presentation layer. It holds no state between calls; every operation
// re-reads the account record it is about to mutate.
type LedgerService interface {
	// ResolveOrCreateAccount returns the account for an authenticated
	// identity, creating it with the welcome bonus on first sight.
	// The boolean reports whether the account was created by this call.
	ResolveOrCreateAccount(ctx context.Context, identity, email, displayName string) (*domain.Account, bool, error)
	// ApplyInterestIfDue lazily accrues simple daily interest for every
	// whole day elapsed since the account's last accrual.
	ApplyInterestIfDue(ctx context.Context, accountID int64) (*domain.Account, error)
	// Transfer moves amount from a sender account to the account owning
	// toPaymentID, appending a DEBIT and a CREDIT ledger entry. The
	// requestID is the caller's idempotency key.
	Transfer(ctx context.Context, requestID string, fromAccountID int64, toPaymentID string, amount decimal.Decimal, note string) (*TransferResult, error)
	// GetTransferStatus reports the recorded outcome of a transfer
	// attempt, so a caller that timed out can confirm before retrying.
	GetTransferStatus(ctx context.Context, requestID string) (*domain.Transfer, error)
	// GetAccount retrieves one account record.
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	// ResolvePaymentID resolves a public payment identifier.
	ResolvePaymentID(ctx context.Context, paymentID string) (*domain.Account, error)
	// GetStatement retrieves a paginated ledger, newest first.
	GetStatement(ctx context.Context, accountID int64, limit, offset int) ([]domain.LedgerEntry, int64, error)
	// AdvisorySummary builds the textual balance-and-activity summary
	// handed to the external advisory service. Nothing else crosses
	// that boundary.
	AdvisorySummary(ctx context.Context, accountID int64) (string, error)
	// AdminStats returns system-wide totals.
	AdminStats(ctx context.Context) (*Stats, error)
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	dbBeginner   db.DBTxBeginner
	dbExecutor   repository.DBExecutor
	accountRepo  repository.AccountRepository
	entryRepo    repository.EntryRepository
	transferRepo repository.TransferRepository
	outboxRepo   repository.OutboxRepository
	cfg          config.LedgerConfig
	ledgerTopic  string
	lockFor      LockFactory
	logger       *slog.Logger
	beginTx      db.BeginTxFunc
	commitTx     db.CommitTxFunc
	rollbackTx   db.RollbackTxFunc
	now          func() time.Time
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	entryRepo repository.EntryRepository,
	transferRepo repository.TransferRepository,
	outboxRepo repository.OutboxRepository,
	cfg config.LedgerConfig,
	ledgerTopic string,
	lockFor LockFactory,
	logger *slog.Logger,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) LedgerService {
	return &ledgerService{
		dbBeginner:   dbBeginner,
		dbExecutor:   dbExecutor,
		accountRepo:  accountRepo,
		entryRepo:    entryRepo,
		transferRepo: transferRepo,
		outboxRepo:   outboxRepo,
		cfg:          cfg,
		ledgerTopic:  ledgerTopic,
		lockFor:      lockFor,
		logger:       logger,
		beginTx:      beginTx,
		commitTx:     commitTx,
		rollbackTx:   rollbackTx,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// newReference mints a prefixed unique reference, e.g. "TRF-<uuid>".
func newReference(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// stageEvent writes a ledger event to the outbox inside the caller's
// transaction, so the event exists iff the ledger change committed.
func (s *ledgerService) stageEvent(ctx context.Context, q repository.DBExecutor, key string, event *domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.outboxRepo.CreateMessage(ctx, q, domain.NewOutboxMessage(s.ledgerTopic, key, string(payload)))
}

// validAmount reports whether amount is a positive value expressible
// in currency minor units (two decimal places). The comparison is by
// value, so trailing zeros ("40.000") do not disqualify an amount.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}
