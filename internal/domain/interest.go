// internal/domain/interest.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestDay is the accrual granularity: interest is earned per whole
// elapsed day, partial days earn nothing.
const InterestDay = 24 * time.Hour

// InterestDue computes simple daily interest owed to a balance for the
// whole days elapsed between lastInterestAt and now.
//
// interest = balance * dailyRate * elapsedDays, rounded to 2 decimal
// places (currency minor units). Returns zero days and zero interest
// when less than a whole day has elapsed. The accrual anchor is
// advanced to now by the caller, so the partial-day remainder since the
// last whole-day boundary is dropped rather than carried forward.
func InterestDue(balance, dailyRate decimal.Decimal, lastInterestAt, now time.Time) (int64, decimal.Decimal) {
	elapsed := now.Sub(lastInterestAt)
	if elapsed < InterestDay {
		return 0, decimal.Zero
	}
	days := int64(elapsed / InterestDay)
	interest := balance.Mul(dailyRate).Mul(decimal.NewFromInt(days)).Round(2)
	return days, interest
}
