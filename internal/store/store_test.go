package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-guardian/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newAccount(t *testing.T, s *SQLiteStore, username string) *model.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), model.Account{Username: username})
	require.NoError(t, err)
	return a
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func expense(date time.Time, amount, desc string) model.TransactionRecord {
	return model.TransactionRecord{
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Direction:   model.DirectionExpense,
	}
}

func TestNewSQLiteStore_FileDatabaseReopens(t *testing.T) {
	path := t.TempDir() + "/nested/guardian.db"

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.CreateAccount(context.Background(), model.Account{Username: "ana"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	accounts, err := s.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "ana", accounts[0].Username)
}

func TestAccounts_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateAccount(ctx, model.Account{Username: " ana ", Email: "ana@example.com", BankID: "HDFC"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "ana", a.Username)
	assert.Equal(t, "hdfc", a.BankID)

	_, err = s.CreateAccount(ctx, model.Account{Username: "ana"})
	assert.Error(t, err, "usernames are unique")

	_, err = s.CreateAccount(ctx, model.Account{Username: "  "})
	assert.Error(t, err)

	got, err := s.GetAccountByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, s.LinkMailbox(ctx, a.ID, "ana@mail.example.com", "SBI"))
	got, err = s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@mail.example.com", got.MailboxAddress)
	assert.Equal(t, "sbi", got.BankID)

	_, err = s.GetAccount(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.LinkMailbox(ctx, "missing", "x@example.com", "sbi")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTransactions_DedupKeyIsUniquePerAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")
	ben := newAccount(t, s, "ben")

	rec := expense(day(2024, time.January, 5), "500.00", "Groceries")

	exists, err := s.TransactionExists(ctx, ana.ID, rec.DedupKey())
	require.NoError(t, err)
	assert.False(t, exists)

	st, err := s.InsertTransaction(ctx, ana.ID, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)

	exists, err = s.TransactionExists(ctx, ana.ID, rec.DedupKey())
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.InsertTransaction(ctx, ana.ID, rec)
	assert.Error(t, err, "the unique index rejects a duplicate triple")

	_, err = s.InsertTransaction(ctx, ben.ID, rec)
	assert.NoError(t, err, "the same triple is fine for another account")
}

func TestTransactions_InsertValidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")

	bad := expense(day(2024, time.January, 5), "1", "x")
	bad.Direction = "refund"
	_, err := s.InsertTransaction(ctx, ana.ID, bad)
	assert.Error(t, err)

	neg := expense(day(2024, time.January, 5), "-1", "x")
	_, err = s.InsertTransaction(ctx, ana.ID, neg)
	assert.Error(t, err)
}

func TestTransactions_MostRecentAndRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")

	_, ok, err := s.MostRecentTransactionDate(ctx, ana.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	for i, d := range []int{3, 9, 1} {
		_, err := s.InsertTransaction(ctx, ana.ID,
			expense(day(2024, time.January, d), "10", "item "+string(rune('a'+i))))
		require.NoError(t, err)
	}

	latest, ok, err := s.MostRecentTransactionDate(ctx, ana.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day(2024, time.January, 9), latest)

	recent, err := s.RecentTransactions(ctx, ana.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, day(2024, time.January, 9), recent[0].Date)
	assert.Equal(t, day(2024, time.January, 3), recent[1].Date)
	assert.True(t, decimal.NewFromInt(10).Equal(recent[0].Amount))
}

func TestSumExpenses_ExactWithinWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")

	records := []model.TransactionRecord{
		expense(day(2024, time.January, 1), "0.10", "a"),
		expense(day(2024, time.January, 2), "0.20", "b"),
		expense(day(2024, time.January, 31), "1", "edge"),
		expense(day(2024, time.February, 1), "99", "outside"),
		{
			Date:        day(2024, time.January, 3),
			Amount:      decimal.RequireFromString("500"),
			Description: "salary",
			Direction:   model.DirectionIncome,
		},
	}
	for _, r := range records {
		_, err := s.InsertTransaction(ctx, ana.ID, r)
		require.NoError(t, err)
	}

	sum, err := s.SumExpenses(ctx, ana.ID, day(2024, time.January, 1), day(2024, time.January, 31))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.30").Equal(sum),
		"0.1 + 0.2 + 1 without float drift, income excluded; got %s", sum)
}

func TestActiveBudget_NewestContainingWindowGoverns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")
	now := day(2024, time.January, 15)

	b, err := s.ActiveBudget(ctx, ana.ID, now)
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = s.CreateBudget(ctx, model.Budget{
		AccountID:   ana.ID,
		Amount:      decimal.RequireFromString("1000"),
		WindowStart: day(2024, time.January, 1),
		WindowEnd:   day(2024, time.January, 31),
	})
	require.NoError(t, err)

	newer, err := s.CreateBudget(ctx, model.Budget{
		AccountID:   ana.ID,
		Amount:      decimal.RequireFromString("750.50"),
		WindowStart: day(2024, time.January, 10),
		WindowEnd:   day(2024, time.February, 9),
	})
	require.NoError(t, err)

	_, err = s.CreateBudget(ctx, model.Budget{
		AccountID:   ana.ID,
		Amount:      decimal.RequireFromString("5"),
		WindowStart: day(2024, time.March, 1),
		WindowEnd:   day(2024, time.March, 31),
	})
	require.NoError(t, err)

	b, err = s.ActiveBudget(ctx, ana.ID, now)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, newer.ID, b.ID)
	assert.True(t, decimal.RequireFromString("750.50").Equal(b.Amount))
	assert.Equal(t, day(2024, time.January, 10), b.WindowStart)

	b, err = s.ActiveBudget(ctx, ana.ID, day(2024, time.January, 5))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, decimal.NewFromInt(1000).Equal(b.Amount), "only the older window covers Jan 5")
}

func TestCreateBudget_Validates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")

	_, err := s.CreateBudget(ctx, model.Budget{
		AccountID:   ana.ID,
		Amount:      decimal.Zero,
		WindowStart: day(2024, time.January, 1),
		WindowEnd:   day(2024, time.January, 31),
	})
	assert.Error(t, err)

	_, err = s.CreateBudget(ctx, model.Budget{
		AccountID:   ana.ID,
		Amount:      decimal.NewFromInt(1),
		WindowStart: day(2024, time.January, 31),
		WindowEnd:   day(2024, time.January, 1),
	})
	assert.Error(t, err)
}

func TestNotifications_UnreadLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")

	unread, err := s.HasUnread(ctx, ana.ID, model.NotificationBudgetWarning)
	require.NoError(t, err)
	assert.False(t, unread)

	n, err := s.InsertNotification(ctx, model.Notification{
		AccountID: ana.ID,
		Kind:      model.NotificationBudgetWarning,
		Message:   "over budget",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)

	unread, err = s.HasUnread(ctx, ana.ID, model.NotificationBudgetWarning)
	require.NoError(t, err)
	assert.True(t, unread)

	list, err := s.UnreadNotifications(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "over budget", list[0].Message)
	assert.True(t, list[0].Unread())

	require.NoError(t, s.MarkNotificationRead(ctx, n.ID))
	require.NoError(t, s.MarkNotificationRead(ctx, n.ID), "marking twice is a no-op")

	unread, err = s.HasUnread(ctx, ana.ID, model.NotificationBudgetWarning)
	require.NoError(t, err)
	assert.False(t, unread)

	err = s.MarkNotificationRead(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(l Ledger) error {
		if _, err := l.InsertTransaction(ctx, ana.ID, expense(day(2024, time.January, 5), "100", "a")); err != nil {
			return err
		}
		if _, err := l.InsertNotification(ctx, model.Notification{
			AccountID: ana.ID, Kind: model.NotificationBudgetWarning, Message: "m",
		}); err != nil {
			return err
		}

		exists, err := l.TransactionExists(ctx, ana.ID, expense(day(2024, time.January, 5), "100", "a").DedupKey())
		require.NoError(t, err)
		assert.True(t, exists, "reads inside the transaction see its writes")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	recent, err := s.RecentTransactions(ctx, ana.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	unread, err := s.HasUnread(ctx, ana.ID, model.NotificationBudgetWarning)
	require.NoError(t, err)
	assert.False(t, unread)
}

func TestWithinTx_Commits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ana := newAccount(t, s, "ana")

	err := s.WithinTx(ctx, func(l Ledger) error {
		_, err := l.InsertTransaction(ctx, ana.ID, expense(day(2024, time.January, 5), "100", "a"))
		return err
	})
	require.NoError(t, err)

	recent, err := s.RecentTransactions(ctx, ana.ID, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
