package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Ledger is the set of per-account reads and writes an ingestion pass needs.
// Inside Store.WithinTx every call runs on the same database transaction, so
// reads observe the writes made earlier in the pass.
type Ledger interface {
	// TransactionExists reports whether the account already holds a
	// transaction with the given dedup key.
	TransactionExists(ctx context.Context, accountID, dedupKey string) (bool, error)

	// InsertTransaction persists rec for the account and returns the stored
	// row. Inserting a duplicate dedup key fails.
	InsertTransaction(
		ctx context.Context, accountID string, rec model.TransactionRecord,
	) (*model.StoredTransaction, error)

	// SumExpenses totals expense amounts dated within [from, to].
	SumExpenses(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)

	// ActiveBudget returns the most recently created budget whose window
	// contains at, or nil when none does.
	ActiveBudget(ctx context.Context, accountID string, at time.Time) (*model.Budget, error)

	// HasUnread reports whether an unread notification of kind exists.
	HasUnread(ctx context.Context, accountID string, kind model.NotificationKind) (bool, error)

	// InsertNotification persists n, generating an id and creation time
	// when they are unset.
	InsertNotification(ctx context.Context, n model.Notification) (*model.Notification, error)
}

// Store defines the persistence interface for accounts, transactions,
// budgets, and notifications.
type Store interface {
	Ledger

	// === Accounts ===

	CreateAccount(ctx context.Context, a model.Account) (*model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	LinkMailbox(ctx context.Context, accountID, address, bankID string) error

	// === Transactions ===

	// MostRecentTransactionDate returns the latest transaction date for the
	// account; ok is false when it has none.
	MostRecentTransactionDate(ctx context.Context, accountID string) (t time.Time, ok bool, err error)
	RecentTransactions(ctx context.Context, accountID string, limit int) ([]model.StoredTransaction, error)

	// === Budgets ===

	CreateBudget(ctx context.Context, b model.Budget) (*model.Budget, error)

	// === Notifications ===

	UnreadNotifications(ctx context.Context, accountID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// WithinTx runs fn on a single database transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Ledger) error) error
}
