package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/model"
)

// New builds a budget of amount covering days calendar days from the start
// of now's UTC day. The window end is the last instant of the final day.
func New(accountID string, amount decimal.Decimal, now time.Time, days int) (model.Budget, error) {
	if !amount.IsPositive() {
		return model.Budget{}, fmt.Errorf("budget amount must be positive, got %s", amount)
	}
	if days < 1 {
		return model.Budget{}, fmt.Errorf("budget duration must be at least one day, got %d", days)
	}

	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days).Add(-time.Nanosecond)

	return model.Budget{
		AccountID:   accountID,
		Amount:      amount,
		WindowStart: start,
		WindowEnd:   end,
	}, nil
}
