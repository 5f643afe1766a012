package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/goal-guardian/internal/model"
)

// CreateBudget inserts a budget. A newer budget whose window overlaps an
// older one supersedes it; budgets never stack.
func (s *SQLiteStore) CreateBudget(
	ctx context.Context,
	b model.Budget,
) (*model.Budget, error) {
	if !b.Amount.IsPositive() {
		return nil, fmt.Errorf("budget amount must be positive, got %s", b.Amount)
	}
	if b.WindowEnd.Before(b.WindowStart) {
		return nil, fmt.Errorf("budget window ends before it starts")
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.WindowStart = b.WindowStart.UTC()
	b.WindowEnd = b.WindowEnd.UTC()
	b.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, account_id, amount, window_start, window_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.AccountID, b.Amount.String(),
		encodeTime(b.WindowStart), encodeTime(b.WindowEnd), encodeTime(b.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("creating budget: %w", err)
	}
	return &b, nil
}
