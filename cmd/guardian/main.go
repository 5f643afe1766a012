package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/nhle/goal-guardian/internal/app"
	"github.com/nhle/goal-guardian/internal/logger"
	"github.com/nhle/goal-guardian/internal/model"
	gsync "github.com/nhle/goal-guardian/internal/sync"
	"github.com/nhle/goal-guardian/internal/ui/mailboxform"
)

func main() {
	cmd := "tui"
	args := []string{}
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	var err error
	switch cmd {
	case "tui":
		err = runTUI(args)
	case "serve":
		err = runServe(args)
	case "ingest":
		err = runIngest(args)
	case "account":
		err = runAccount(args)
	case "budget":
		err = runBudget(args)
	case "transaction":
		err = runTransaction(args)
	case "banks":
		err = runBanks(args)
	case "config":
		err = runConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		failure("%v", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Goal Guardian")
	fmt.Println("\nUsage:")
	fmt.Println("  guardian <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  tui             Open the dashboard (default)")
	fmt.Println("  serve           Ingest every account on a schedule until interrupted")
	fmt.Println("  ingest          Run one ingestion pass for an account")
	fmt.Println("  account add     Register an account")
	fmt.Println("  account link    Link a mailbox to an account")
	fmt.Println("  account unlink  Forget an account's mailbox")
	fmt.Println("  account list    List accounts")
	fmt.Println("  budget set      Set the budget for an account")
	fmt.Println("  transaction add Record an income or expense by hand")
	fmt.Println("  banks           List supported banks")
	fmt.Println("  config init     Write a default config file")
	fmt.Println("  help            Show this help message")
	fmt.Println("\nRun 'guardian <command> -h' for more information on a command.")
}

func runTUI(args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	configPath := configFlag(fs)
	fs.Parse(args)

	// The terminal belongs to the UI, so logs go to a file next to the database.
	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logPath := filepath.Join(filepath.Dir(cfg.Database.Path), "guardian.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	e, err := newEnv(*configPath, logFile)
	if err != nil {
		return err
	}
	defer e.Close()

	poller := gsync.New(e.store, e.coordinator, e.cfg.Ingest, e.log)
	defer poller.Stop()

	var banks []mailboxform.BankOption
	for _, id := range e.banks.IDs() {
		s, err := e.banks.Lookup(id)
		if err != nil {
			continue
		}
		banks = append(banks, mailboxform.BankOption{ID: s.ID(), Name: s.Name()})
	}

	root := app.New(app.Deps{
		Accounts: e.accounts,
		Lister:   e.store,
		Poller:   poller,
		Banks:    banks,
		Budget:   e.cfg.Budget,
		Log:      e.log,
	})

	p := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := configFlag(fs)
	fs.Parse(args)

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := gsync.New(e.store, e.coordinator, e.cfg.Ingest, e.log)
	poller.Start()

	e.log.Info().
		Dur("interval", e.cfg.Ingest.Interval()).
		Int("workers", e.cfg.Ingest.Workers).
		Msg("ingestion scheduler started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("shutting down")
			poller.Stop()
			return nil
		case res := <-poller.Results():
			logResult(e, res)
		}
	}
}

func logResult(e *env, res gsync.IngestResultMsg) {
	ev := e.log.Info()
	switch {
	case res.AuthError != nil:
		ev = e.log.Warn().Str("reason", res.AuthError.Message)
	case res.Error != nil:
		ev = e.log.Error().Err(res.Error)
	}
	ev.Str("account", res.AccountID).
		Int("new", res.Result.NewCount).
		Int("duplicates", res.Result.Duplicates).
		Bool("notified", res.Result.Notification != nil).
		Msg("ingestion pass finished")
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := configFlag(fs)
	ref := fs.String("account", "", "account id or username")
	fs.Parse(args)

	if *ref == "" {
		return fmt.Errorf("-account is required")
	}

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Ingest.PassTimeout())
	defer cancel()
	ctx = logger.WithContext(ctx, e.log.With().Str("cmd", "ingest").Logger())

	a, err := e.accounts.Find(ctx, *ref)
	if err != nil {
		return err
	}

	res, err := e.coordinator.Run(ctx, *a)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", a.Username, err)
	}
	printResult(*a, res)
	return nil
}

func runAccount(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: guardian account <add|link|unlink|list> [options]")
	}

	switch args[0] {
	case "add":
		return runAccountAdd(args[1:])
	case "link":
		return runAccountLink(args[1:])
	case "unlink":
		return runAccountUnlink(args[1:])
	case "list":
		return runAccountList(args[1:])
	default:
		return fmt.Errorf("unknown account command %q", args[0])
	}
}

func runAccountAdd(args []string) error {
	fs := flag.NewFlagSet("account add", flag.ExitOnError)
	configPath := configFlag(fs)
	username := fs.String("username", "", "unique username")
	email := fs.String("email", "", "contact email")
	fs.Parse(args)

	if *username == "" {
		return fmt.Errorf("-username is required")
	}

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	a, err := e.accounts.Register(context.Background(), *username, *email)
	if err != nil {
		return err
	}
	success("account %s created (id %s)", a.Username, a.ID)
	return nil
}

func runAccountLink(args []string) error {
	fs := flag.NewFlagSet("account link", flag.ExitOnError)
	configPath := configFlag(fs)
	ref := fs.String("account", "", "account id or username")
	address := fs.String("address", "", "mailbox login address")
	bankID := fs.String("bank", "", "bank id, see 'guardian banks'")
	fs.Parse(args)

	if *ref == "" || *address == "" || *bankID == "" {
		return fmt.Errorf("-account, -address and -bank are required")
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	a, err := e.accounts.Find(ctx, *ref)
	if err != nil {
		return err
	}
	if err := e.accounts.LinkMailbox(ctx, a.ID, *address, password, *bankID); err != nil {
		return err
	}
	success("mailbox %s linked to %s", *address, a.Username)
	return nil
}

func runAccountUnlink(args []string) error {
	fs := flag.NewFlagSet("account unlink", flag.ExitOnError)
	configPath := configFlag(fs)
	ref := fs.String("account", "", "account id or username")
	fs.Parse(args)

	if *ref == "" {
		return fmt.Errorf("-account is required")
	}

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	a, err := e.accounts.Find(ctx, *ref)
	if err != nil {
		return err
	}
	if err := e.accounts.UnlinkMailbox(ctx, a.ID); err != nil {
		return err
	}
	success("mailbox unlinked from %s", a.Username)
	return nil
}

// readPassword takes the mailbox password from GUARDIAN_MAILBOX_PASSWORD,
// a terminal prompt, or the first line of stdin, in that order.
func readPassword() (string, error) {
	if pw := os.Getenv("GUARDIAN_MAILBOX_PASSWORD"); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Mailbox password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runAccountList(args []string) error {
	fs := flag.NewFlagSet("account list", flag.ExitOnError)
	configPath := configFlag(fs)
	fs.Parse(args)

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	accounts, err := e.store.ListAccounts(context.Background())
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		warning("no accounts yet, run 'guardian account add'")
		return nil
	}
	for _, a := range accounts {
		mailbox := a.MailboxAddress
		if mailbox == "" {
			mailbox = "not linked"
		}
		fmt.Printf("%-36s  %-16s  %-6s  %s\n", a.ID, a.Username, a.BankID, mailbox)
	}
	return nil
}

func runBudget(args []string) error {
	if len(args) == 0 || args[0] != "set" {
		return fmt.Errorf("usage: guardian budget set -account <ref> -amount <n> [-days <n>]")
	}

	fs := flag.NewFlagSet("budget set", flag.ExitOnError)
	configPath := configFlag(fs)
	ref := fs.String("account", "", "account id or username")
	amount := fs.String("amount", "", "budget amount")
	days := fs.Int("days", 0, "window length in days (default from config)")
	fs.Parse(args[1:])

	if *ref == "" || *amount == "" {
		return fmt.Errorf("-account and -amount are required")
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", *amount)
	}

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	if *days == 0 {
		*days = e.cfg.Budget.DefaultDurationDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := e.accounts.Find(ctx, *ref)
	if err != nil {
		return err
	}
	b, err := e.accounts.SetBudget(ctx, a.ID, value, *days)
	if err != nil {
		return err
	}
	success("budget of %s set for %s until %s",
		b.Amount.StringFixed(2), a.Username, b.WindowEnd.Format("2006-01-02"))
	return nil
}

func runTransaction(args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return fmt.Errorf("usage: guardian transaction add [options]")
	}

	fs := flag.NewFlagSet("transaction add", flag.ExitOnError)
	configPath := configFlag(fs)
	ref := fs.String("account", "", "account id or username")
	amount := fs.String("amount", "", "positive amount, e.g. 12.50")
	description := fs.String("description", "", "what the money was for")
	direction := fs.String("type", string(model.DirectionExpense), "expense or income")
	date := fs.String("date", "", "transaction date as YYYY-MM-DD (default today)")
	fs.Parse(args[1:])

	if *ref == "" || *amount == "" || *description == "" {
		return fmt.Errorf("-account, -amount and -description are required")
	}

	rec := model.TransactionRecord{
		Description: *description,
		Direction:   model.Direction(strings.ToLower(*direction)),
	}
	var err error
	if rec.Amount, err = decimal.NewFromString(*amount); err != nil {
		return fmt.Errorf("invalid amount %q: %w", *amount, err)
	}
	if *date != "" {
		if rec.Date, err = time.ParseInLocation("2006-01-02", *date, time.UTC); err != nil {
			return fmt.Errorf("invalid date %q: %w", *date, err)
		}
	}

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	a, err := e.accounts.Find(ctx, *ref)
	if err != nil {
		return err
	}
	res, err := e.accounts.AddTransaction(ctx, a.ID, rec)
	if err != nil {
		return err
	}
	printResult(*a, res)
	return nil
}

func runBanks(args []string) error {
	fs := flag.NewFlagSet("banks", flag.ExitOnError)
	configPath := configFlag(fs)
	fs.Parse(args)

	e, err := newEnv(*configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, id := range e.banks.IDs() {
		s, err := e.banks.Lookup(id)
		if err != nil {
			continue
		}
		fmt.Printf("%-10s %-24s %s\n", s.ID(), s.Name(), s.Sender())
	}
	return nil
}

func runConfig(args []string) error {
	if len(args) == 0 || args[0] != "init" {
		return fmt.Errorf("usage: guardian config init [-config <path>] [-force]")
	}

	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := configFlag(fs)
	force := fs.Bool("force", false, "overwrite an existing file")
	fs.Parse(args[1:])

	if _, err := os.Stat(*configPath); err == nil && !*force {
		warning("%s already exists, pass -force to overwrite", *configPath)
		return nil
	}
	if err := model.SaveConfig(*configPath, model.DefaultAppConfig()); err != nil {
		return err
	}
	success("wrote %s", *configPath)
	return nil
}
