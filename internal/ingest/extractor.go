// Package ingest imports bank transactions from an account's mailbox and
// raises budget warnings.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/goal-guardian/internal/bank"
	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/source"
)

// BankLookup resolves the parsing strategy for a bank id.
type BankLookup interface {
	Lookup(bankID string) (bank.Strategy, error)
}

// Extractor reads bank notifications from a mailbox and parses them.
type Extractor struct {
	source source.MessageSource
	banks  BankLookup
	log    zerolog.Logger
}

// NewExtractor creates an Extractor. log is used when the context passed to
// Extract carries no logger.
func NewExtractor(src source.MessageSource, banks BankLookup, log zerolog.Logger) *Extractor {
	return &Extractor{
		source: src,
		banks:  banks,
		log:    log,
	}
}

// Extract returns the transactions found in messages from the bank's sender
// since the given time, in mailbox order. Messages that are not
// notifications, cannot be fetched, or no longer match the bank's format are
// skipped. Auth and connectivity failures abort the pass and discard
// everything read so far.
func (e *Extractor) Extract(
	ctx context.Context,
	cred model.MailboxCredential,
	since time.Time,
) ([]model.TransactionRecord, error) {
	strategy, err := e.banks.Lookup(cred.BankID)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, e.log).With().
		Str("stage", "extract").
		Str("bank", strategy.ID()).
		Str("mailbox", cred.Address).
		Logger()

	var (
		records                    []model.TransactionRecord
		scanned, unreadable, drift int
	)
	err = source.WithSession(ctx, e.source, cred.Address, cred.Password, func(sess source.Session) error {
		handles, err := sess.Search(ctx, source.Criteria{
			SenderPattern: strategy.Sender(),
			Since:         since,
		})
		if err != nil {
			return err
		}
		log.Debug().Int("candidates", handles.Remaining()).Time("since", since).Msg("mailbox searched")

		for {
			h, ok := handles.Next()
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			scanned++

			body, err := sess.FetchBody(ctx, h)
			if source.IsFetchError(err) {
				unreadable++
				log.Warn().Err(err).Uint32("message", uint32(h)).Msg("skipping unreadable message")
				continue
			}
			if err != nil {
				return err
			}

			rec, err := strategy.Parse(body)
			if bank.IsFormatDrift(err) {
				drift++
				log.Warn().Err(err).Uint32("message", uint32(h)).Msg("bank message format drift")
				continue
			}
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			records = append(records, *rec)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("scanned", scanned).
		Int("parsed", len(records)).
		Int("unreadable", unreadable).
		Int("drift", drift).
		Msg("extraction finished")

	return records, nil
}
