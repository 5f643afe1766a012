package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/goal-guardian/internal/budget"
	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/store"
)

// CredentialResolver returns an account's mailbox credential. An absent
// credential is reported as an incomplete one, not an error.
type CredentialResolver interface {
	Resolve(a model.Account) (model.MailboxCredential, error)
}

// TransactionExtractor produces candidate records for one pass.
type TransactionExtractor interface {
	Extract(ctx context.Context, cred model.MailboxCredential, since time.Time) ([]model.TransactionRecord, error)
}

// Result summarizes one ingestion pass.
type Result struct {
	AccountID string

	// NewCount is the number of transactions stored by this pass.
	NewCount int

	// Duplicates counts extracted records that were already stored.
	Duplicates int

	Evaluation budget.Evaluation

	// Notification is the warning created by this pass, if any.
	Notification *model.Notification
}

// Coordinator runs ingestion passes. It holds no per-account state between
// calls; callers must not run two passes for the same account at once.
type Coordinator struct {
	store     store.Store
	creds     CredentialResolver
	extractor TransactionExtractor
	evaluator *budget.Evaluator
	log       zerolog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	s store.Store,
	creds CredentialResolver,
	extractor TransactionExtractor,
	evaluator *budget.Evaluator,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		store:     s,
		creds:     creds,
		extractor: extractor,
		evaluator: evaluator,
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// Run performs one ingestion pass for account. New transactions and the
// budget warning they trigger are committed together or not at all.
func (c *Coordinator) Run(ctx context.Context, account model.Account) (Result, error) {
	res := Result{AccountID: account.ID}
	log := logger.FromContext(ctx, c.log).With().Str("account", account.ID).Logger()
	ctx = logger.WithContext(ctx, log)

	cred, err := c.creds.Resolve(account)
	if err != nil {
		return res, fmt.Errorf("resolving credential for account %s: %w", account.ID, err)
	}
	if !cred.Complete() {
		log.Debug().Msg("mailbox not linked, skipping")
		return res, nil
	}

	since, _, err := c.store.MostRecentTransactionDate(ctx, account.ID)
	if err != nil {
		return res, fmt.Errorf("ingesting account %s: %w", account.ID, err)
	}

	records, err := c.extractor.Extract(ctx, cred, since)
	if err != nil {
		return res, fmt.Errorf("ingesting account %s: %w", account.ID, err)
	}

	err = c.store.WithinTx(ctx, func(l store.Ledger) error {
		var err error
		res, err = Commit(ctx, l, c.evaluator, account.ID, records)
		return err
	})
	if err != nil {
		return Result{AccountID: account.ID}, fmt.Errorf("committing ingestion for account %s: %w", account.ID, err)
	}

	log.Info().
		Int("new", res.NewCount).
		Int("duplicates", res.Duplicates).
		Bool("notified", res.Notification != nil).
		Msg("ingestion pass complete")

	return res, nil
}

// Commit stores the records the ledger does not hold yet, evaluates the
// budget, and inserts a warning when one is due. It must run inside a
// single store transaction so the inserts and the warning land together.
// Records repeated within one call are stored once.
func Commit(
	ctx context.Context,
	l store.Ledger,
	evaluator *budget.Evaluator,
	accountID string,
	records []model.TransactionRecord,
) (Result, error) {
	res := Result{AccountID: accountID}

	for _, rec := range records {
		exists, err := l.TransactionExists(ctx, accountID, rec.DedupKey())
		if err != nil {
			return res, err
		}
		if exists {
			res.Duplicates++
			continue
		}
		if _, err := l.InsertTransaction(ctx, accountID, rec); err != nil {
			return res, err
		}
		res.NewCount++
	}

	eval, err := evaluator.Evaluate(ctx, l, accountID)
	if err != nil {
		return res, err
	}
	res.Evaluation = eval
	if !eval.ShouldNotify {
		return res, nil
	}

	n, err := l.InsertNotification(ctx, model.Notification{
		AccountID: accountID,
		Kind:      model.NotificationBudgetWarning,
		Message:   budget.Message(eval),
	})
	if err != nil {
		return res, err
	}
	res.Notification = n
	return res, nil
}
