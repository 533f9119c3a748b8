// internal/domain/interest_test.go
package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInterestDue(t *testing.T) {
	rate := decimal.RequireFromString("0.0001")
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("LessThanOneDayIsNoOp", func(t *testing.T) {
		days, interest := InterestDue(decimal.NewFromInt(1000), rate, now.Add(-23*time.Hour), now)
		assert.Equal(t, int64(0), days)
		assert.True(t, interest.IsZero())
	})

	t.Run("ExactlyOneDay", func(t *testing.T) {
		days, interest := InterestDue(decimal.NewFromInt(1000), rate, now.Add(-24*time.Hour), now)
		assert.Equal(t, int64(1), days)
		assert.True(t, interest.Equal(decimal.RequireFromString("0.10")), "got %s", interest)
	})

	t.Run("ThreeDaysOnThousand", func(t *testing.T) {
		days, interest := InterestDue(decimal.NewFromInt(1000), rate, now.Add(-3*24*time.Hour), now)
		assert.Equal(t, int64(3), days)
		assert.True(t, interest.Equal(decimal.RequireFromString("0.30")), "got %s", interest)
	})

	t.Run("PartialDayRemainderIsDropped", func(t *testing.T) {
		// 2 days and 20 hours earns exactly 2 days of interest.
		days, interest := InterestDue(decimal.NewFromInt(1000), rate, now.Add(-(2*24+20)*time.Hour), now)
		assert.Equal(t, int64(2), days)
		assert.True(t, interest.Equal(decimal.RequireFromString("0.20")), "got %s", interest)
	})

	t.Run("ZeroBalanceEarnsNothing", func(t *testing.T) {
		days, interest := InterestDue(decimal.Zero, rate, now.Add(-48*time.Hour), now)
		assert.Equal(t, int64(2), days)
		assert.True(t, interest.IsZero())
	})

	t.Run("RoundsToMinorUnits", func(t *testing.T) {
		// 123.45 * 0.0001 * 1 = 0.012345 -> 0.01
		days, interest := InterestDue(decimal.RequireFromString("123.45"), rate, now.Add(-24*time.Hour), now)
		assert.Equal(t, int64(1), days)
		assert.True(t, interest.Equal(decimal.RequireFromString("0.01")), "got %s", interest)
	})
}
