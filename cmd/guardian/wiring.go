package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/nhle/goal-guardian/internal/account"
	"github.com/nhle/goal-guardian/internal/bank"
	"github.com/nhle/goal-guardian/internal/budget"
	"github.com/nhle/goal-guardian/internal/credential"
	"github.com/nhle/goal-guardian/internal/ingest"
	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/source/email"
	"github.com/nhle/goal-guardian/internal/store"
)

// env holds the services every command shares.
type env struct {
	cfg         *model.AppConfig
	log         zerolog.Logger
	store       *store.SQLiteStore
	banks       *bank.Registry
	creds       *credential.Resolver
	evaluator   *budget.Evaluator
	coordinator *ingest.Coordinator
	accounts    *account.Service
}

// configFlag registers the -config flag on fs.
func configFlag(fs *flag.FlagSet) *string {
	path := os.Getenv("GUARDIAN_CONFIG")
	if path == "" {
		path = model.DefaultConfigPath()
	}
	return fs.String("config", path, "path to config.yaml")
}

// newEnv loads configuration and opens the store, keyring, and bank
// registry. Logs go to logOut.
func newEnv(configPath string, logOut io.Writer) (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.Configure(logOut, cfg.Log.Level, cfg.Log.Console)

	banks, err := bank.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("loading built-in banks: %w", err)
	}
	if cfg.Ingest.BanksFile != "" {
		defs, err := bank.LoadDefinitionsFile(cfg.Ingest.BanksFile)
		if err != nil {
			return nil, err
		}
		if err := banks.RegisterDefinitions(defs); err != nil {
			return nil, fmt.Errorf("registering banks from %s: %w", cfg.Ingest.BanksFile, err)
		}
		log.Info().Str("file", cfg.Ingest.BanksFile).Int("banks", len(defs)).Msg("loaded extra bank definitions")
	}

	ring, err := credential.Open()
	if err != nil {
		return nil, err
	}
	creds := credential.NewResolver(credential.New(ring))

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	client := email.NewClient(email.Config{
		Host:    cfg.IMAP.Host,
		Port:    cfg.IMAP.Port,
		TLS:     cfg.IMAP.TLS,
		Folder:  cfg.IMAP.Folder,
		Timeout: cfg.IMAP.Timeout(),
	})

	evaluator := budget.NewEvaluator(cfg.Budget.NotifyFraction)
	extractor := ingest.NewExtractor(client, banks, log)

	return &env{
		cfg:         cfg,
		log:         log,
		store:       s,
		banks:       banks,
		creds:       creds,
		evaluator:   evaluator,
		coordinator: ingest.NewCoordinator(s, creds, extractor, evaluator, log),
		accounts:    account.NewService(s, creds, banks, evaluator, log),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Error().Err(err).Msg("closing store")
	}
}
