package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/goal-guardian/internal/model"
)

// MostRecentTransactionDate returns the latest stored transaction date.
func (s *SQLiteStore) MostRecentTransactionDate(
	ctx context.Context,
	accountID string,
) (time.Time, bool, error) {
	var dates []string
	err := s.db.SelectContext(ctx, &dates,
		"SELECT date FROM transactions WHERE account_id = ? ORDER BY date DESC LIMIT 1",
		accountID,
	)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("getting most recent transaction date: %w", err)
	}
	if len(dates) == 0 {
		return time.Time{}, false, nil
	}

	t, err := decodeTime(dates[0])
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// RecentTransactions returns up to limit transactions, newest first.
func (s *SQLiteStore) RecentTransactions(
	ctx context.Context,
	accountID string,
	limit int,
) ([]model.StoredTransaction, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, date, amount, description, direction, dedup_key, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY date DESC, created_at DESC
		LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent transactions: %w", err)
	}

	txns := make([]model.StoredTransaction, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, nil
}
