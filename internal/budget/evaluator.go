// Package budget decides whether spending against an account's active
// budget warrants a notification.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/model"
)

// Ledger is the read access the evaluator needs. store.Ledger satisfies it,
// so evaluation can run inside the same transaction as the inserts it
// follows.
type Ledger interface {
	ActiveBudget(ctx context.Context, accountID string, at time.Time) (*model.Budget, error)
	SumExpenses(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)
	HasUnread(ctx context.Context, accountID string, kind model.NotificationKind) (bool, error)
}

// Evaluation is the budget status of one account at one instant.
type Evaluation struct {
	// ActiveBudget is nil when no budget window contains the evaluation time.
	ActiveBudget *model.Budget

	SpentToDate decimal.Decimal

	// Remaining is the budget amount minus SpentToDate. Negative when
	// overspent.
	Remaining decimal.Decimal

	// ThresholdCrossed is true when spending reached the notify threshold.
	ThresholdCrossed bool

	// ShouldNotify is ThresholdCrossed without an unread warning already
	// waiting for the user.
	ShouldNotify bool
}

// Evaluator computes Evaluations.
type Evaluator struct {
	fraction decimal.Decimal
	now      func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the evaluation time source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator returns an evaluator that signals once spending reaches
// notifyFraction of the budget amount. Non-positive fractions mean 1.
func NewEvaluator(notifyFraction float64, opts ...Option) *Evaluator {
	fraction := decimal.NewFromFloat(notifyFraction)
	if !fraction.IsPositive() {
		fraction = decimal.NewFromInt(1)
	}
	e := &Evaluator{fraction: fraction, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate sums the account's expenses inside the active budget window and
// compares them with the threshold. No active budget is not an error.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	l Ledger,
	accountID string,
) (Evaluation, error) {
	now := e.now().UTC()

	b, err := l.ActiveBudget(ctx, accountID, now)
	if err != nil {
		return Evaluation{}, fmt.Errorf("finding active budget: %w", err)
	}
	if b == nil || !b.Contains(now) {
		return Evaluation{SpentToDate: decimal.Zero, Remaining: decimal.Zero}, nil
	}

	spent, err := l.SumExpenses(ctx, accountID, b.WindowStart, b.WindowEnd)
	if err != nil {
		return Evaluation{}, fmt.Errorf("summing expenses: %w", err)
	}

	eval := Evaluation{
		ActiveBudget:     b,
		SpentToDate:      spent,
		Remaining:        b.Amount.Sub(spent),
		ThresholdCrossed: spent.GreaterThanOrEqual(b.Amount.Mul(e.fraction)),
	}
	if !eval.ThresholdCrossed {
		return eval, nil
	}

	unread, err := l.HasUnread(ctx, accountID, model.NotificationBudgetWarning)
	if err != nil {
		return Evaluation{}, fmt.Errorf("checking unread warnings: %w", err)
	}
	eval.ShouldNotify = !unread
	return eval, nil
}

// Message renders the warning text for an evaluation with an active budget.
func Message(eval Evaluation) string {
	if eval.ActiveBudget == nil {
		return ""
	}
	b := eval.ActiveBudget
	msg := fmt.Sprintf("You have spent %s of your %s budget for %s to %s.",
		eval.SpentToDate.StringFixed(2),
		b.Amount.StringFixed(2),
		b.WindowStart.Format("2006-01-02"),
		b.WindowEnd.Format("2006-01-02"),
	)
	if eval.Remaining.IsNegative() {
		msg += fmt.Sprintf(" You are %s over.", eval.Remaining.Neg().StringFixed(2))
	}
	return msg
}
