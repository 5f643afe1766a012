package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/model"
)

// ledger implements Ledger over either the database or an open transaction.
type ledger struct {
	ext sqlx.ExtContext
}

// TransactionExists reports whether dedupKey is already stored for the account.
func (l *ledger) TransactionExists(
	ctx context.Context,
	accountID, dedupKey string,
) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, l.ext, &count,
		"SELECT COUNT(*) FROM transactions WHERE account_id = ? AND dedup_key = ?",
		accountID, dedupKey,
	)
	if err != nil {
		return false, fmt.Errorf("checking transaction %s: %w", dedupKey, err)
	}
	return count > 0, nil
}

// InsertTransaction persists rec under a new UUID.
func (l *ledger) InsertTransaction(
	ctx context.Context,
	accountID string,
	rec model.TransactionRecord,
) (*model.StoredTransaction, error) {
	if !rec.Direction.Valid() {
		return nil, fmt.Errorf("invalid transaction direction %q", rec.Direction)
	}
	if rec.Amount.IsNegative() {
		return nil, fmt.Errorf("transaction amount must not be negative, got %s", rec.Amount)
	}

	st := &model.StoredTransaction{
		ID:                uuid.New().String(),
		AccountID:         accountID,
		TransactionRecord: rec,
		CreatedAt:         time.Now().UTC(),
	}

	_, err := l.ext.ExecContext(ctx, `
		INSERT INTO transactions (
			id, account_id, date, amount, description,
			direction, dedup_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, accountID, encodeTime(rec.Date), rec.Amount.String(), rec.Description,
		string(rec.Direction), rec.DedupKey(), encodeTime(st.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}
	return st, nil
}

// SumExpenses adds up expense amounts exactly; SQLite would sum them as floats.
func (l *ledger) SumExpenses(
	ctx context.Context,
	accountID string,
	from, to time.Time,
) (decimal.Decimal, error) {
	var amounts []string
	err := sqlx.SelectContext(ctx, l.ext, &amounts, `
		SELECT amount FROM transactions
		WHERE account_id = ? AND direction = ? AND date >= ? AND date <= ?`,
		accountID, string(model.DirectionExpense), encodeTime(from), encodeTime(to),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing expenses: %w", err)
	}

	total := decimal.Zero
	for _, a := range amounts {
		v, err := decimal.NewFromString(a)
		if err != nil {
			return decimal.Zero, fmt.Errorf("decoding amount %q: %w", a, err)
		}
		total = total.Add(v)
	}
	return total, nil
}

// ActiveBudget returns the newest budget whose window contains at. Ties on
// created_at fall back to insertion order.
func (l *ledger) ActiveBudget(
	ctx context.Context,
	accountID string,
	at time.Time,
) (*model.Budget, error) {
	var row budgetRow
	ts := encodeTime(at)
	err := sqlx.GetContext(ctx, l.ext, &row, `
		SELECT id, account_id, amount, window_start, window_end, created_at
		FROM budgets
		WHERE account_id = ? AND window_start <= ? AND window_end >= ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		accountID, ts, ts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active budget: %w", err)
	}

	b, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// HasUnread reports whether the account has an unread notification of kind.
func (l *ledger) HasUnread(
	ctx context.Context,
	accountID string,
	kind model.NotificationKind,
) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, l.ext, &count,
		"SELECT COUNT(*) FROM notifications WHERE account_id = ? AND kind = ? AND read_at IS NULL",
		accountID, string(kind),
	)
	if err != nil {
		return false, fmt.Errorf("checking unread notifications: %w", err)
	}
	return count > 0, nil
}

// InsertNotification creates a notification. Generates a UUID if ID is empty.
func (l *ledger) InsertNotification(
	ctx context.Context,
	n model.Notification,
) (*model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var readAt sql.NullString
	if n.ReadAt != nil {
		readAt = sql.NullString{String: encodeTime(*n.ReadAt), Valid: true}
	}

	_, err := l.ext.ExecContext(ctx, `
		INSERT INTO notifications (id, account_id, kind, message, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.AccountID, string(n.Kind), n.Message, encodeTime(n.CreatedAt), readAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	return &n, nil
}
