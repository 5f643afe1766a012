package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/goal-guardian/internal/account"
	"github.com/nhle/goal-guardian/internal/keys"
	"github.com/nhle/goal-guardian/internal/model"
	gsync "github.com/nhle/goal-guardian/internal/sync"
	"github.com/nhle/goal-guardian/internal/ui"
	"github.com/nhle/goal-guardian/internal/ui/accountlist"
	"github.com/nhle/goal-guardian/internal/ui/budgetform"
	"github.com/nhle/goal-guardian/internal/ui/command"
	"github.com/nhle/goal-guardian/internal/ui/dashboard"
	helpview "github.com/nhle/goal-guardian/internal/ui/help"
	"github.com/nhle/goal-guardian/internal/ui/mailboxform"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewAccounts
	ViewHelp
	ViewCommand
	ViewBudgetForm
	ViewMailboxForm
)

// Deps are the services the TUI drives.
type Deps struct {
	Accounts *account.Service
	Lister   accountlist.AccountLister
	Poller   *gsync.Poller
	Banks    []mailboxform.BankOption
	Budget   model.BudgetConfig
	Log      zerolog.Logger
}

// Model is the root Bubble Tea model that manages view routing, layout, and
// access to the account services.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	svc    *account.Service
	poller *gsync.Poller
	log    zerolog.Logger

	dashboard   dashboard.Model
	accountList accountlist.Model
	helpView    helpview.Model
	commandView command.Model
	budgetForm  budgetform.Model
	mailboxForm mailboxform.Model

	accountID        string
	ready            bool
	statusMessage    string
	authErrorMessage string
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewDashboard,
		keys:        k,
		svc:         d.Accounts,
		poller:      d.Poller,
		log:         d.Log,
		dashboard:   dashboard.New(k, 80, 24),
		accountList: accountlist.New(d.Lister, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		budgetForm:  budgetform.New(d.Budget.DefaultDurationDays, 80, 24),
		mailboxForm: mailboxform.New(d.Banks, 80, 24),
	}
}

// Init loads the accounts and starts background ingestion.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.accountList.Init(),
		m.poller.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.dashboard.SetSize(w, h)
		m.accountList.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.budgetForm.SetSize(w, h)
		m.mailboxForm.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case accountlist.AccountsLoadedMsg:
		var cmd tea.Cmd
		m.accountList, cmd = m.accountList.Update(msg)
		if msg.Err != nil {
			m.statusMessage = "loading accounts: " + msg.Err.Error()
			return m, cmd
		}
		if len(msg.Accounts) == 0 {
			m.currentView = ViewAccounts
			return m, cmd
		}
		if m.accountID == "" {
			m.accountID = msg.Accounts[0].ID
		}
		return m, tea.Batch(cmd, m.loadOverview())

	case accountlist.AccountSelectedMsg:
		m.accountID = msg.AccountID
		m.currentView = ViewDashboard
		m.dashboard.StopFetching()
		return m, m.loadOverview()

	case overviewLoadedMsg:
		if msg.err != nil {
			m.statusMessage = "loading dashboard: " + msg.err.Error()
			return m, nil
		}
		if msg.overview.Account.ID == m.accountID {
			m.dashboard.SetSnapshot(snapshot(msg.overview))
		}
		return m, nil

	case gsync.IngestResultMsg:
		m.accountList.SetStatuses(m.poller.GetStatuses())
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil && msg.AccountID == m.accountID {
			m.authErrorMessage = ""
		}

		cmds := []tea.Cmd{m.poller.WaitForNextResult()}
		if msg.AccountID == m.accountID {
			m.dashboard.StopFetching()
			m.statusMessage = resultSummary(msg)
			cmds = append(cmds, m.loadOverview())
		}
		return m, tea.Batch(cmds...)

	case dashboard.FetchRequestMsg:
		cmd := m.fetch()
		return m, cmd

	case dashboard.SetBudgetRequestMsg:
		cmd := m.openBudgetForm()
		return m, cmd

	case dashboard.LinkMailboxRequestMsg:
		cmd := m.openMailboxForm()
		return m, cmd

	case dashboard.NextAccountRequestMsg:
		cmd := m.nextAccount()
		return m, cmd

	case dashboard.MarkReadMsg:
		return m, m.markRead(msg.NotificationID)

	case budgetform.BudgetSubmittedMsg:
		m.currentView = ViewDashboard
		return m, m.setBudget(msg)

	case mailboxform.MailboxSubmittedMsg:
		m.currentView = ViewDashboard
		return m, m.linkMailbox(msg)

	case budgetform.BudgetFormCancelMsg, mailboxform.MailboxFormCancelMsg:
		m.currentView = ViewDashboard
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMessage = msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		cmds := []tea.Cmd{m.loadOverview(), m.accountList.LoadAccounts()}
		if msg.fetch {
			cmds = append(cmds, m.fetch())
		}
		return m, tea.Batch(cmds...)

	case accountCreatedMsg:
		if msg.err != nil {
			m.statusMessage = msg.err.Error()
			return m, nil
		}
		m.accountID = msg.account.ID
		m.currentView = ViewDashboard
		m.statusMessage = fmt.Sprintf("account %s created, press l to link a mailbox", msg.account.Username)
		return m, tea.Batch(m.accountList.LoadAccounts(), m.loadOverview())

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work regardless of the active view.
// Forms and the command palette receive every other key unchanged.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return m, tea.Quit, true
	}

	inForm := m.currentView == ViewBudgetForm || m.currentView == ViewMailboxForm
	if inForm {
		if key.Matches(msg, m.keys.Back) {
			m.currentView = ViewDashboard
			return m, nil, true
		}
		return m, nil, false
	}

	if m.currentView == ViewCommand {
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.poller.Stop()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		cmd := m.commandView.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Back):
		if m.currentView != ViewDashboard && m.accountID != "" {
			m.currentView = ViewDashboard
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Accounts):
		if m.currentView == ViewDashboard {
			m.currentView = ViewAccounts
			return m, m.accountList.LoadAccounts(), true
		}

	case key.Matches(msg, m.keys.Reload):
		return m, tea.Batch(m.loadOverview(), m.accountList.LoadAccounts()), true
	}

	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewAccounts:
		m.accountList, cmd = m.accountList.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewBudgetForm:
		m.budgetForm, cmd = m.budgetForm.Update(msg)
	case ViewMailboxForm:
		m.mailboxForm, cmd = m.mailboxForm.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.header())
	statusBar := m.layout.RenderStatusBar(ui.StatusLine{
		Text:  m.keyHints(),
		Alert: m.authErrorMessage != "" && m.currentView == ViewDashboard,
	})

	return m.layout.Compose(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDashboard:
		return m.layout.RenderColumns(0.6, m.dashboard.TransactionsView, m.dashboard.SidebarView)
	case ViewAccounts:
		return m.accountList.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewBudgetForm:
		return m.budgetForm.View()
	case ViewMailboxForm:
		return m.mailboxForm.View()
	default:
		return ""
	}
}

// header describes the current account and the combined ingestion state.
func (m Model) header() ui.Header {
	var h ui.Header
	if s := m.dashboard.Snapshot(); s != nil {
		h.Account = s.Account.Username
		for _, n := range s.Notifications {
			if n.Unread() {
				h.Unread++
			}
		}
	}

	for _, s := range m.poller.GetStatuses() {
		switch s.State {
		case gsync.SyncRunning:
			h.Sync.Running++
		case gsync.SyncError:
			h.Sync.Failed++
		}
	}
	return h
}

// keyHints returns the status bar text for the current view.
func (m Model) keyHints() string {
	if m.authErrorMessage != "" && m.currentView == ViewDashboard {
		return m.authErrorMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewBudgetForm, ViewMailboxForm:
		return "enter submit | esc cancel"
	case ViewAccounts:
		return "enter select | esc back | : account add <username>"
	}

	if m.statusMessage != "" {
		return m.statusMessage
	}
	return m.helpView.ShortView()
}

// snapshot converts an overview into dashboard data.
func snapshot(ov *account.Overview) dashboard.Snapshot {
	return dashboard.Snapshot{
		Account:       ov.Account,
		Linked:        ov.Linked,
		Transactions:  ov.Transactions,
		Evaluation:    ov.Evaluation,
		Notifications: ov.Notifications,
	}
}

// resultSummary describes a finished ingestion pass.
func resultSummary(msg gsync.IngestResultMsg) string {
	switch {
	case msg.AuthError != nil:
		return msg.AuthError.Message
	case msg.Error != nil:
		return "fetch failed: " + msg.Error.Error()
	case msg.Result.Notification != nil:
		return fmt.Sprintf("%d new transaction(s). %s", msg.Result.NewCount, msg.Result.Notification.Message)
	default:
		return fmt.Sprintf("%d new transaction(s)", msg.Result.NewCount)
	}
}
