package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-guardian/internal/account"
	"github.com/nhle/goal-guardian/internal/bank"
	"github.com/nhle/goal-guardian/internal/budget"
	"github.com/nhle/goal-guardian/internal/credential"
	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/store"
	"github.com/nhle/goal-guardian/tests/testutil"
)

func newService(t *testing.T) (*account.Service, *store.SQLiteStore) {
	t.Helper()

	s := testutil.NewTestStore(t)
	reg, err := bank.DefaultRegistry()
	require.NoError(t, err)
	creds := credential.NewResolver(credential.New(keyring.NewArrayKeyring(nil)))

	return account.NewService(s, creds, reg, budget.NewEvaluator(1), logger.Nop()), s
}

func TestRegisterAndFind(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "  alice ", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)

	byID, err := svc.Find(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byID.ID)

	byName, err := svc.Find(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	_, err = svc.Find(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLinkMailbox(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	ov, err := svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ov.Linked)

	err = svc.LinkMailbox(ctx, a.ID, "alice@example.com", "pw", "nosuchbank")
	assert.ErrorIs(t, err, bank.ErrUnknownBank)

	err = svc.LinkMailbox(ctx, a.ID, "alice@example.com", "", "sbi")
	assert.Error(t, err)

	require.NoError(t, svc.LinkMailbox(ctx, a.ID, "alice@example.com", "pw", "SBI"))

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "sbi", got.BankID)

	ov, err = svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ov.Linked)

	require.NoError(t, svc.UnlinkMailbox(ctx, a.ID))
	ov, err = svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ov.Linked)
	assert.Empty(t, ov.Account.MailboxAddress)
}

func TestSetBudgetSupersedes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	_, err = svc.SetBudget(ctx, a.ID, decimal.NewFromInt(500), 30)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := svc.SetBudget(ctx, a.ID, decimal.NewFromInt(800), 7)
	require.NoError(t, err)

	ov, err := svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, ov.Evaluation.ActiveBudget)
	assert.Equal(t, second.ID, ov.Evaluation.ActiveBudget.ID)

	_, err = svc.SetBudget(ctx, a.ID, decimal.Zero, 30)
	assert.Error(t, err)
}

func TestOverviewAndMarkRead(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	today := time.Now().UTC()
	_, err = svc.SetBudget(ctx, a.ID, decimal.NewFromInt(100), 30)
	require.NoError(t, err)

	_, err = s.InsertTransaction(ctx, a.ID, testutil.Expense(today, "120", "Dinner"))
	require.NoError(t, err)
	n, err := s.InsertNotification(ctx, model.Notification{
		AccountID: a.ID,
		Kind:      model.NotificationBudgetWarning,
		Message:   "over",
	})
	require.NoError(t, err)

	ov, err := svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, ov.Transactions, 1)
	assert.True(t, ov.Evaluation.ThresholdCrossed)
	assert.True(t, ov.Evaluation.Remaining.Equal(decimal.NewFromInt(-20)))
	require.Len(t, ov.Notifications, 1)

	require.NoError(t, svc.MarkRead(ctx, n.ID))
	ov, err = svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ov.Notifications)
}

// brokenStore fails id lookups with a database error.
type brokenStore struct {
	store.Store
	byUsername int
}

func (b *brokenStore) GetAccount(context.Context, string) (*model.Account, error) {
	return nil, errors.New("disk I/O error")
}

func (b *brokenStore) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	b.byUsername++
	return b.Store.GetAccountByUsername(ctx, username)
}

func TestFind_DatabaseErrorIsNotMaskedByUsernameLookup(t *testing.T) {
	broken := &brokenStore{Store: testutil.NewTestStore(t)}
	creds := credential.NewResolver(credential.New(keyring.NewArrayKeyring(nil)))
	svc := account.NewService(broken, creds, bank.NewRegistry(), budget.NewEvaluator(1), logger.Nop())

	_, err := svc.Find(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Zero(t, broken.byUsername)
}

func TestAddTransaction(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "alice", "")
	require.NoError(t, err)
	_, err = svc.SetBudget(ctx, a.ID, decimal.NewFromInt(1000), 30)
	require.NoError(t, err)

	res, err := svc.AddTransaction(ctx, a.ID, model.TransactionRecord{
		Amount:      decimal.NewFromInt(950),
		Description: "  Rent ",
		Direction:   model.DirectionExpense,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)
	assert.Nil(t, res.Notification)

	res, err = svc.AddTransaction(ctx, a.ID, model.TransactionRecord{
		Amount:      decimal.NewFromInt(100),
		Description: "Groceries",
		Direction:   model.DirectionExpense,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Notification, "crossing the budget raises a warning")
	assert.Equal(t, model.NotificationBudgetWarning, res.Notification.Kind)

	_, err = svc.AddTransaction(ctx, a.ID, model.TransactionRecord{
		Amount:      decimal.NewFromInt(950),
		Description: "Rent",
		Direction:   model.DirectionExpense,
	})
	assert.ErrorIs(t, err, account.ErrDuplicateTransaction)

	ov, err := svc.Overview(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, ov.Transactions, 2)
	assert.Len(t, ov.Notifications, 1)
	for _, txn := range ov.Transactions {
		assert.False(t, txn.Date.IsZero())
	}
}

func TestAddTransaction_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, "alice", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		rec  model.TransactionRecord
	}{
		{"empty description", model.TransactionRecord{Amount: decimal.NewFromInt(1), Description: " ", Direction: model.DirectionExpense}},
		{"zero amount", model.TransactionRecord{Amount: decimal.Zero, Description: "x", Direction: model.DirectionExpense}},
		{"bad direction", model.TransactionRecord{Amount: decimal.NewFromInt(1), Description: "x", Direction: "refund"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTransaction(ctx, a.ID, tt.rec)
			assert.Error(t, err)
		})
	}
}
