// Package account holds the user-facing account operations shared by the
// TUI and the command line: registration, mailbox linking, budgets, and the
// dashboard overview.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/bank"
	"github.com/nhle/goal-guardian/internal/budget"
	"github.com/nhle/goal-guardian/internal/ingest"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/store"
)

// RecentLimit is how many transactions the overview lists.
const RecentLimit = 10

// Credentials reads and writes mailbox passwords.
type Credentials interface {
	Resolve(a model.Account) (model.MailboxCredential, error)
	SetMailboxPassword(accountID, password string) error
	ClearMailboxPassword(accountID string) error
}

// BankLookup validates bank ids.
type BankLookup interface {
	Lookup(bankID string) (bank.Strategy, error)
}

// Overview is the dashboard state of one account.
type Overview struct {
	Account       model.Account
	Linked        bool
	Transactions  []model.StoredTransaction
	Evaluation    budget.Evaluation
	Notifications []model.Notification
}

// Service implements account operations over the store.
type Service struct {
	store     store.Store
	creds     Credentials
	banks     BankLookup
	evaluator *budget.Evaluator
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates an account service.
func NewService(
	s store.Store,
	creds Credentials,
	banks BankLookup,
	evaluator *budget.Evaluator,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:     s,
		creds:     creds,
		banks:     banks,
		evaluator: evaluator,
		now:       time.Now,
		log:       log,
	}
}

// Register creates an account without a mailbox.
func (s *Service) Register(ctx context.Context, username, email string) (*model.Account, error) {
	a, err := s.store.CreateAccount(ctx, model.Account{
		Username: username,
		Email:    strings.TrimSpace(email),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("account", a.ID).Str("username", a.Username).Msg("account registered")
	return a, nil
}

// Find resolves an account by id, falling back to username.
func (s *Service) Find(ctx context.Context, ref string) (*model.Account, error) {
	a, err := s.store.GetAccount(ctx, ref)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.store.GetAccountByUsername(ctx, ref)
}

// LinkMailbox records the mailbox address and bank for an account and keeps
// the password in the keyring. The bank must be registered.
func (s *Service) LinkMailbox(ctx context.Context, accountID, address, password, bankID string) error {
	address = strings.TrimSpace(address)
	if address == "" || password == "" {
		return fmt.Errorf("mailbox address and password are required")
	}
	if _, err := s.banks.Lookup(bankID); err != nil {
		return err
	}

	if err := s.store.LinkMailbox(ctx, accountID, address, bankID); err != nil {
		return err
	}
	if err := s.creds.SetMailboxPassword(accountID, password); err != nil {
		return fmt.Errorf("saving mailbox password: %w", err)
	}

	s.log.Info().
		Str("account", accountID).
		Str("bank", bankID).
		Msg("mailbox linked")
	return nil
}

// UnlinkMailbox forgets the mailbox of an account. Later ingestion passes
// are no-ops until a mailbox is linked again.
func (s *Service) UnlinkMailbox(ctx context.Context, accountID string) error {
	if err := s.store.LinkMailbox(ctx, accountID, "", ""); err != nil {
		return err
	}
	if err := s.creds.ClearMailboxPassword(accountID); err != nil {
		return fmt.Errorf("removing mailbox password: %w", err)
	}
	s.log.Info().Str("account", accountID).Msg("mailbox unlinked")
	return nil
}

// SetBudget creates a budget of amount covering days from today. It
// supersedes any budget already active.
func (s *Service) SetBudget(
	ctx context.Context, accountID string, amount decimal.Decimal, days int,
) (*model.Budget, error) {
	b, err := budget.New(accountID, amount, s.now(), days)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account", accountID).
		Str("amount", created.Amount.String()).
		Time("window_end", created.WindowEnd).
		Msg("budget set")
	return created, nil
}

// ErrDuplicateTransaction is returned by AddTransaction when the account
// already holds the same date, amount and description.
var ErrDuplicateTransaction = errors.New("transaction already recorded")

// AddTransaction records a manually entered transaction. It goes through
// the same dedup and budget checks as an ingestion pass, so a warning may
// be raised in the same commit.
func (s *Service) AddTransaction(
	ctx context.Context, accountID string, rec model.TransactionRecord,
) (ingest.Result, error) {
	rec.Description = bank.NormalizeDescription(rec.Description)
	if rec.Description == "" {
		return ingest.Result{}, errors.New("description is required")
	}
	if !rec.Amount.IsPositive() {
		return ingest.Result{}, fmt.Errorf("amount must be positive, got %s", rec.Amount)
	}
	if !rec.Direction.Valid() {
		return ingest.Result{}, fmt.Errorf("invalid direction %q", rec.Direction)
	}
	if rec.Date.IsZero() {
		y, m, d := s.now().UTC().Date()
		rec.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	var res ingest.Result
	err := s.store.WithinTx(ctx, func(l store.Ledger) error {
		var err error
		res, err = ingest.Commit(ctx, l, s.evaluator, accountID, []model.TransactionRecord{rec})
		if err != nil {
			return err
		}
		if res.NewCount == 0 {
			return ErrDuplicateTransaction
		}
		return nil
	})
	if err != nil {
		return ingest.Result{}, err
	}

	s.log.Info().
		Str("account", accountID).
		Str("direction", string(rec.Direction)).
		Str("amount", rec.Amount.String()).
		Bool("notified", res.Notification != nil).
		Msg("transaction added")
	return res, nil
}

// Overview gathers the dashboard state for an account.
func (s *Service) Overview(ctx context.Context, accountID string) (*Overview, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	cred, err := s.creds.Resolve(*a)
	if err != nil {
		return nil, fmt.Errorf("resolving credential: %w", err)
	}

	txns, err := s.store.RecentTransactions(ctx, accountID, RecentLimit)
	if err != nil {
		return nil, err
	}

	eval, err := s.evaluator.Evaluate(ctx, s.store, accountID)
	if err != nil {
		return nil, err
	}

	notes, err := s.store.UnreadNotifications(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Account:       *a,
		Linked:        cred.Complete(),
		Transactions:  txns,
		Evaluation:    eval,
		Notifications: notes,
	}, nil
}

// MarkRead acknowledges a notification.
func (s *Service) MarkRead(ctx context.Context, notificationID string) error {
	return s.store.MarkNotificationRead(ctx, notificationID)
}
