package accountlist

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-guardian/internal/keys"
	"github.com/nhle/goal-guardian/internal/model"
	gsync "github.com/nhle/goal-guardian/internal/sync"
	"github.com/nhle/goal-guardian/internal/theme"
)

// AccountLister is the store access the list needs.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
}

// AccountsLoadedMsg is sent when accounts have been loaded from the store.
type AccountsLoadedMsg struct {
	Accounts []model.Account
	Err      error
}

// AccountSelectedMsg is sent when the user picks an account.
type AccountSelectedMsg struct {
	AccountID string
}

// Model is the account switcher.
type Model struct {
	list     list.Model
	accounts AccountLister
	keys     *keys.KeyMap
	statuses map[string]gsync.SyncStatus
	width    int
	height   int
}

// New creates an account switcher backed by accounts.
func New(accounts AccountLister, k *keys.KeyMap, width, height int) Model {
	statuses := make(map[string]gsync.SyncStatus)
	delegate := ItemDelegate{statuses: statuses}

	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Accounts"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.KeyMap.Quit.SetEnabled(false)

	return Model{
		list:     l,
		accounts: accounts,
		keys:     k,
		statuses: statuses,
		width:    width,
		height:   height,
	}
}

// Init returns a command that loads the accounts.
func (m Model) Init() tea.Cmd {
	return m.LoadAccounts()
}

// Update handles messages for the account switcher.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case AccountsLoadedMsg:
		items := make([]list.Item, len(msg.Accounts))
		for i, a := range msg.Accounts {
			items[i] = AccountItem{Account: a}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			item, ok := m.list.SelectedItem().(AccountItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return AccountSelectedMsg{AccountID: item.Account.ID}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetStatuses records the latest ingestion status of each account.
func (m *Model) SetStatuses(statuses []gsync.SyncStatus) {
	for _, st := range statuses {
		m.statuses[st.AccountID] = st
	}
}

// Accounts returns the loaded accounts in display order.
func (m Model) Accounts() []model.Account {
	items := m.list.Items()
	out := make([]model.Account, 0, len(items))
	for _, it := range items {
		if ai, ok := it.(AccountItem); ok {
			out = append(out, ai.Account)
		}
	}
	return out
}

// View renders the account switcher.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No accounts yet.\n\nPress : then type 'account add <username> <email>'.")
	}
	return m.list.View()
}

// LoadAccounts returns a tea.Cmd that reads every account from the store.
func (m Model) LoadAccounts() tea.Cmd {
	accounts := m.accounts
	return func() tea.Msg {
		accts, err := accounts.ListAccounts(context.Background())
		return AccountsLoadedMsg{Accounts: accts, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
