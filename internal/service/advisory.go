// internal/service/advisory.go
package service

import (
	"context"
	"fmt"
	"strings"

	"payflow/internal/domain"
)

// advisorySummaryEntries caps how much history leaves the core for the
// advisory collaborator.
const advisorySummaryEntries = 5

// AdvisorySummary builds the plain-text summary the external advisory
// service consumes: current balance and the most recent ledger
// activity, nothing else. The advisory call itself lives outside the
// core.
func (s *ledgerService) AdvisorySummary(ctx context.Context, accountID int64) (string, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	entries, _, err := s.entryRepo.ListEntriesByAccount(ctx, s.dbExecutor, accountID, advisorySummaryEntries, 0)
	if err != nil {
		return "", fmt.Errorf("advisory summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current balance: %s.", account.Balance.StringFixed(2))
	if len(entries) == 0 {
		b.WriteString(" No transactions yet.")
		return b.String(), nil
	}
	b.WriteString(" Recent transactions:")
	for _, entry := range entries {
		verb := "received from"
		if entry.Direction == domain.EntryDirectionDebit {
			verb = "sent to"
		}
		fmt.Fprintf(&b, " %s %s %s (%s);",
			entry.Amount.StringFixed(2), verb, entry.Counterparty, entry.Note)
	}
	return strings.TrimSuffix(b.String(), ";") + ".", nil
}
