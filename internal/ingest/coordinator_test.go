package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-guardian/internal/budget"
	"github.com/nhle/goal-guardian/internal/credential"
	"github.com/nhle/goal-guardian/internal/ingest"
	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/source"
	"github.com/nhle/goal-guardian/internal/store"
	"github.com/nhle/goal-guardian/tests/testutil"
)

var (
	windowStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)
	evalTime    = time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	store   *store.SQLiteStore
	creds   *credential.Resolver
	src     *fakeSource
	coord   *ingest.Coordinator
	account *model.Account
}

func newHarness(t *testing.T, bodies ...string) *harness {
	t.Helper()

	s := testutil.NewTestStore(t)
	creds := credential.NewResolver(credential.New(keyring.NewArrayKeyring(nil)))
	src := newFakeSource(bodies...)

	a := testutil.NewAccount(t, s, "ana", "sbi")
	require.NoError(t, creds.SetMailboxPassword(a.ID, "secret"))

	coord := ingest.NewCoordinator(
		s,
		creds,
		newExtractor(t, src),
		budget.NewEvaluator(1, budget.WithClock(func() time.Time { return evalTime })),
		logger.Nop(),
	)
	return &harness{store: s, creds: creds, src: src, coord: coord, account: a}
}

func (h *harness) transactionCount(t *testing.T) int {
	t.Helper()
	txns, err := h.store.RecentTransactions(context.Background(), h.account.ID, 1000)
	require.NoError(t, err)
	return len(txns)
}

func (h *harness) unread(t *testing.T) []model.Notification {
	t.Helper()
	ns, err := h.store.UnreadNotifications(context.Background(), h.account.ID)
	require.NoError(t, err)
	return ns
}

func TestRun_IncompleteCredentialIsNoop(t *testing.T) {
	h := newHarness(t, "debited INR 10.00 on 2024-01-05 for Coffee")

	other := testutil.NewAccount(t, h.store, "ben", "sbi")

	res, err := h.coord.Run(context.Background(), *other)
	require.NoError(t, err)
	assert.Zero(t, res.NewCount)

	connects, _ := h.src.stats()
	assert.Zero(t, connects, "no password means the mailbox is never contacted")
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t,
		"debited INR 10.00 on 2024-01-05 for Coffee",
		"debited INR 20.00 on 2024-01-06 for Lunch",
	)
	ctx := context.Background()

	res, err := h.coord.Run(ctx, *h.account)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewCount)

	res, err = h.coord.Run(ctx, *h.account)
	require.NoError(t, err)
	assert.Zero(t, res.NewCount)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 2, h.transactionCount(t))

	require.Len(t, h.src.criteria, 2)
	assert.True(t, h.src.criteria[0].Since.IsZero(), "first pass scans everything")
	assert.Equal(t, time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC), h.src.criteria[1].Since)
}

func TestRun_DuplicateMessagesInOnePass(t *testing.T) {
	h := newHarness(t,
		"debited INR 10.00 on 2024-01-05 for Coffee",
		"debited INR 10.00 on 2024-01-05 for Coffee",
		"debited INR 10.00 on 2024-01-05 for Tea",
	)

	res, err := h.coord.Run(context.Background(), *h.account)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewCount)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 2, h.transactionCount(t))
}

func TestRun_BudgetWarningOncePerUnread(t *testing.T) {
	h := newHarness(t, "debited INR 100.00 on 2024-01-10 for Books")
	ctx := context.Background()

	testutil.NewBudget(t, h.store, h.account.ID, "1000.00", windowStart, windowEnd)
	_, err := h.store.InsertTransaction(ctx, h.account.ID,
		testutil.Expense(time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), "950.00", "Rent"))
	require.NoError(t, err)

	res, err := h.coord.Run(ctx, *h.account)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)
	assert.True(t, res.Evaluation.ShouldNotify)
	require.NotNil(t, res.Notification)
	assert.Equal(t, model.NotificationBudgetWarning, res.Notification.Kind)
	assert.Contains(t, res.Notification.Message, "1050.00")
	assert.Len(t, h.unread(t), 1)

	res, err = h.coord.Run(ctx, *h.account)
	require.NoError(t, err)
	assert.Zero(t, res.NewCount)
	assert.True(t, res.Evaluation.ThresholdCrossed, "still over budget")
	assert.False(t, res.Evaluation.ShouldNotify)
	assert.Nil(t, res.Notification)
	assert.Len(t, h.unread(t), 1, "the unread warning suppresses a duplicate")

	first := h.unread(t)[0]
	require.NoError(t, h.store.MarkNotificationRead(ctx, first.ID))

	res, err = h.coord.Run(ctx, *h.account)
	require.NoError(t, err)
	require.NotNil(t, res.Notification, "once read, the next pass warns again")
	assert.Len(t, h.unread(t), 1)
}

func TestRun_NoBudgetNoNotification(t *testing.T) {
	h := newHarness(t, "debited INR 5000.00 on 2024-01-10 for Laptop")

	res, err := h.coord.Run(context.Background(), *h.account)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)
	assert.Nil(t, res.Evaluation.ActiveBudget)
	assert.Nil(t, res.Notification)
	assert.Empty(t, h.unread(t))
}

func TestRun_ConnectivityFailureCommitsNothing(t *testing.T) {
	h := newHarness(t,
		"debited INR 600.00 on 2024-01-05 for Phone",
		"debited INR 600.00 on 2024-01-06 for Tablet",
	)
	h.src.dropAt = 1
	testutil.NewBudget(t, h.store, h.account.ID, "500", windowStart, windowEnd)

	res, err := h.coord.Run(context.Background(), *h.account)
	require.Error(t, err)
	assert.True(t, source.IsConnectivityError(err))
	assert.Zero(t, res.NewCount)
	assert.Zero(t, h.transactionCount(t), "the record parsed before the failure is discarded")
	assert.Empty(t, h.unread(t))

	_, closes := h.src.stats()
	assert.Equal(t, 1, closes)
}

func TestRun_AuthFailureIsReported(t *testing.T) {
	h := newHarness(t, "debited INR 10.00 on 2024-01-05 for Coffee")
	h.src.connectErr = &source.AuthError{Address: "ana@mail.example.com", Message: "invalid credentials"}

	_, err := h.coord.Run(context.Background(), *h.account)
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
	assert.Zero(t, h.transactionCount(t))
}
