package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewAccount creates an account with a linked mailbox for bankID.
func NewAccount(t *testing.T, s store.Store, username, bankID string) *model.Account {
	t.Helper()

	a, err := s.CreateAccount(context.Background(), model.Account{
		Username:       username,
		Email:          username + "@example.com",
		MailboxAddress: username + "@mail.example.com",
		BankID:         bankID,
	})
	if err != nil {
		t.Fatalf("creating test account: %v", err)
	}
	return a
}

// NewBudget creates a budget of amount spanning start..end.
func NewBudget(
	t *testing.T, s store.Store, accountID, amount string, start, end time.Time,
) *model.Budget {
	t.Helper()

	b, err := s.CreateBudget(context.Background(), model.Budget{
		AccountID:   accountID,
		Amount:      decimal.RequireFromString(amount),
		WindowStart: start,
		WindowEnd:   end,
	})
	if err != nil {
		t.Fatalf("creating test budget: %v", err)
	}
	return b
}

// Expense builds an expense record.
func Expense(date time.Time, amount, description string) model.TransactionRecord {
	return model.TransactionRecord{
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Direction:   model.DirectionExpense,
	}
}
