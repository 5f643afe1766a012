package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/account"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/ui/budgetform"
	"github.com/nhle/goal-guardian/internal/ui/command"
	"github.com/nhle/goal-guardian/internal/ui/mailboxform"
)

// storeTimeout bounds every store round trip issued from the UI.
const storeTimeout = 10 * time.Second

// overviewLoadedMsg carries a freshly loaded dashboard overview.
type overviewLoadedMsg struct {
	overview *account.Overview
	err      error
}

// actionDoneMsg reports a finished write. fetch asks for an ingestion pass
// afterwards.
type actionDoneMsg struct {
	message string
	fetch   bool
	err     error
}

// accountCreatedMsg reports a registration from the command palette.
type accountCreatedMsg struct {
	account *model.Account
	err     error
}

func (m Model) loadOverview() tea.Cmd {
	id := m.accountID
	if id == "" {
		return nil
	}
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		ov, err := svc.Overview(ctx, id)
		return overviewLoadedMsg{overview: ov, err: err}
	}
}

// fetch queues an immediate pass for the current account.
func (m *Model) fetch() tea.Cmd {
	if m.accountID == "" {
		m.statusMessage = "no account selected"
		return nil
	}
	if s := m.dashboard.Snapshot(); s != nil && !s.Linked {
		m.statusMessage = "link a mailbox first (press l)"
		return nil
	}
	if !m.poller.Trigger(m.accountID) {
		m.statusMessage = "a fetch is already running for this account"
		return nil
	}
	m.statusMessage = "fetching..."
	return m.dashboard.StartFetching()
}

func (m *Model) openBudgetForm() tea.Cmd {
	if m.accountID == "" {
		return nil
	}
	m.currentView = ViewBudgetForm
	return m.budgetForm.Start(m.accountID)
}

func (m *Model) openMailboxForm() tea.Cmd {
	s := m.dashboard.Snapshot()
	if s == nil {
		return nil
	}
	m.currentView = ViewMailboxForm
	return m.mailboxForm.Start(s.Account)
}

// nextAccount switches the dashboard to the account after the current one.
func (m *Model) nextAccount() tea.Cmd {
	accounts := m.accountList.Accounts()
	if len(accounts) < 2 {
		return nil
	}
	next := 0
	for i, a := range accounts {
		if a.ID == m.accountID {
			next = (i + 1) % len(accounts)
			break
		}
	}
	m.accountID = accounts[next].ID
	m.dashboard.StopFetching()
	m.statusMessage = ""
	return m.loadOverview()
}

func (m Model) markRead(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := svc.MarkRead(ctx, id); err != nil {
			return actionDoneMsg{err: fmt.Errorf("marking notification read: %w", err)}
		}
		return actionDoneMsg{message: "notification marked read"}
	}
}

func (m Model) setBudget(msg budgetform.BudgetSubmittedMsg) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		b, err := svc.SetBudget(ctx, msg.AccountID, msg.Amount, msg.Days)
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("setting budget: %w", err)}
		}
		return actionDoneMsg{message: fmt.Sprintf(
			"budget of %s set until %s", b.Amount.StringFixed(2), b.WindowEnd.Format("2006-01-02"),
		)}
	}
}

func (m Model) addTransaction(rec model.TransactionRecord) tea.Cmd {
	svc, id := m.svc, m.accountID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		res, err := svc.AddTransaction(ctx, id, rec)
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("adding %s: %w", rec.Direction, err)}
		}
		message := fmt.Sprintf("%s of %s recorded", rec.Direction, rec.Amount.StringFixed(2))
		if res.Notification != nil {
			message += " · " + res.Notification.Message
		}
		return actionDoneMsg{message: message}
	}
}

func (m Model) linkMailbox(msg mailboxform.MailboxSubmittedMsg) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		err := svc.LinkMailbox(ctx, msg.AccountID, msg.Address, msg.Password, msg.BankID)
		if err != nil {
			return actionDoneMsg{err: fmt.Errorf("linking mailbox: %w", err)}
		}
		return actionDoneMsg{message: "mailbox linked", fetch: true}
	}
}

func (m Model) register(username, email string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		a, err := svc.Register(ctx, username, email)
		return accountCreatedMsg{account: a, err: err}
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(line string) tea.Cmd {
	c, err := command.Parse(line)
	if err != nil {
		m.statusMessage = err.Error()
		return nil
	}

	switch c.Name {
	case "fetch":
		return m.fetch()
	case "budget":
		if len(c.Args) == 0 {
			return m.openBudgetForm()
		}
		return m.budgetFromArgs(c.Args)
	case "link":
		return m.openMailboxForm()
	case "expense", "income":
		return m.addFromArgs(model.Direction(c.Name), c.Args)
	case "account add":
		if len(c.Args) == 0 {
			m.statusMessage = "usage: account add <username> [email]"
			return nil
		}
		email := ""
		if len(c.Args) > 1 {
			email = c.Args[1]
		}
		return m.register(c.Args[0], email)
	case "accounts":
		m.currentView = ViewAccounts
		return m.accountList.LoadAccounts()
	case "reload":
		return tea.Batch(m.loadOverview(), m.accountList.LoadAccounts())
	case "quit":
		m.poller.Stop()
		return tea.Quit
	}
	return nil
}

// addFromArgs handles "expense|income <amount> <description...>".
func (m *Model) addFromArgs(direction model.Direction, args []string) tea.Cmd {
	if m.accountID == "" {
		m.statusMessage = "no account selected"
		return nil
	}
	if len(args) < 2 {
		m.statusMessage = fmt.Sprintf("usage: %s <amount> <description>", direction)
		return nil
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		m.statusMessage = fmt.Sprintf("invalid amount %q", args[0])
		return nil
	}
	return m.addTransaction(model.TransactionRecord{
		Amount:      amount,
		Description: strings.Join(args[1:], " "),
		Direction:   direction,
	})
}

// budgetFromArgs handles "budget <amount> [days]".
func (m *Model) budgetFromArgs(args []string) tea.Cmd {
	if m.accountID == "" {
		m.statusMessage = "no account selected"
		return nil
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(args[0]))
	if err != nil {
		m.statusMessage = fmt.Sprintf("invalid amount %q", args[0])
		return nil
	}
	days := m.budgetForm.DefaultDays()
	if len(args) > 1 {
		days, err = strconv.Atoi(args[1])
		if err != nil {
			m.statusMessage = fmt.Sprintf("invalid duration %q", args[1])
			return nil
		}
	}
	return m.setBudget(budgetform.BudgetSubmittedMsg{
		AccountID: m.accountID,
		Amount:    amount,
		Days:      days,
	})
}
