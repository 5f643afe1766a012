package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/budget"
	"github.com/nhle/goal-guardian/internal/keys"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/theme"
)

// Snapshot is everything the dashboard shows for one account.
type Snapshot struct {
	Account       model.Account
	Linked        bool
	Transactions  []model.StoredTransaction
	Evaluation    budget.Evaluation
	Notifications []model.Notification
}

// FetchRequestMsg asks the app to run an ingestion pass now.
type FetchRequestMsg struct{}

// SetBudgetRequestMsg asks the app to open the budget form.
type SetBudgetRequestMsg struct{}

// LinkMailboxRequestMsg asks the app to open the mailbox form.
type LinkMailboxRequestMsg struct{}

// NextAccountRequestMsg asks the app to show the next account.
type NextAccountRequestMsg struct{}

// MarkReadMsg asks the app to acknowledge a notification.
type MarkReadMsg struct {
	NotificationID string
}

type focusArea int

const (
	focusTransactions focusArea = iota
	focusNotifications
)

// Model is the account dashboard: recent transactions, budget status, and
// unread notifications.
type Model struct {
	keys        *keys.KeyMap
	table       table.Model
	spinner     spinner.Model
	snapshot    *Snapshot
	focus       focusArea
	notifCursor int
	fetching    bool
	width       int
	height      int
}

// New creates a dashboard model.
func New(k *keys.KeyMap, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorBlue)
	t.SetStyles(styles)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		keys:    k,
		table:   t,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// columns sizes the transaction table for the given panel width.
func columns(width int) []table.Column {
	desc := width - 12 - 14 - 9 - 8
	if desc < 12 {
		desc = 12
	}
	return []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Description", Width: desc},
		{Title: "Amount", Width: 14},
		{Title: "Type", Width: 9},
	}
}

// SetSnapshot replaces the displayed data.
func (m *Model) SetSnapshot(s Snapshot) {
	m.snapshot = &s
	rows := make([]table.Row, 0, len(s.Transactions))
	for _, t := range s.Transactions {
		rows = append(rows, table.Row{
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Amount.StringFixed(2),
			string(t.Direction),
		})
	}
	m.table.SetRows(rows)
	if m.notifCursor >= len(s.Notifications) {
		m.notifCursor = max(0, len(s.Notifications)-1)
	}
}

// Snapshot returns the displayed data, or nil before the first load.
func (m Model) Snapshot() *Snapshot {
	return m.snapshot
}

// StartFetching shows the progress spinner.
func (m *Model) StartFetching() tea.Cmd {
	m.fetching = true
	return m.spinner.Tick
}

// StopFetching hides the progress spinner.
func (m *Model) StopFetching() {
	m.fetching = false
}

// Fetching reports whether a manual fetch is in progress.
func (m Model) Fetching() bool {
	return m.fetching
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.fetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Fetch):
			if m.fetching {
				return m, nil
			}
			return m, emit(FetchRequestMsg{})
		case key.Matches(msg, m.keys.SetBudget):
			return m, emit(SetBudgetRequestMsg{})
		case key.Matches(msg, m.keys.LinkMailbox):
			return m, emit(LinkMailboxRequestMsg{})
		case key.Matches(msg, m.keys.NextAccount):
			return m, emit(NextAccountRequestMsg{})
		case key.Matches(msg, m.keys.Focus):
			m.toggleFocus()
			return m, nil
		}

		if m.focus == focusNotifications {
			return m.updateNotifications(msg)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusTransactions {
		m.focus = focusNotifications
		m.table.Blur()
		return
	}
	m.focus = focusTransactions
	m.table.Focus()
}

func (m Model) updateNotifications(msg tea.KeyMsg) (Model, tea.Cmd) {
	var notifications []model.Notification
	if m.snapshot != nil {
		notifications = m.snapshot.Notifications
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.notifCursor < len(notifications)-1 {
			m.notifCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.notifCursor > 0 {
			m.notifCursor--
		}
	case key.Matches(msg, m.keys.MarkRead):
		if m.notifCursor < len(notifications) && notifications[m.notifCursor].Unread() {
			id := notifications[m.notifCursor].ID
			return m, emit(MarkReadMsg{NotificationID: id})
		}
	}
	return m, nil
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	rows := height - 8
	if rows < 3 {
		rows = 3
	}
	m.table.SetHeight(rows)
}

// TransactionsView renders the recent transactions panel at width.
func (m Model) TransactionsView(width int) string {
	inner := width - 4
	m.table.SetColumns(columns(inner))
	m.table.SetWidth(inner)

	title := theme.TitleStyle.Render("Recent transactions")
	body := m.table.View()
	if m.snapshot == nil || len(m.snapshot.Transactions) == 0 {
		body = theme.HelpStyle.Render("No transactions yet.")
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, body, totals(m.snapshot.Transactions))
	}

	style := theme.PanelStyle
	if m.focus == focusTransactions {
		style = theme.FocusedPanelStyle
	}
	return style.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

// SidebarView renders the budget and notification panels at width.
func (m Model) SidebarView(width int) string {
	inner := width - 4

	notifStyle := theme.PanelStyle
	if m.focus == focusNotifications {
		notifStyle = theme.FocusedPanelStyle
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.PanelStyle.Width(inner).Render(m.budgetView(inner)),
		notifStyle.Width(inner).Render(m.notificationsView(inner)),
	)
}

func (m Model) budgetView(width int) string {
	title := "Budget"
	if m.fetching {
		title += " " + m.spinner.View() + " fetching"
	}
	lines := []string{theme.TitleStyle.Render(title)}

	switch {
	case m.snapshot == nil:
		lines = append(lines, theme.HelpStyle.Render("Loading..."))
	case m.snapshot.Evaluation.ActiveBudget == nil:
		lines = append(lines, theme.HelpStyle.Render("No active budget. Press b to set one."))
	default:
		eval := m.snapshot.Evaluation
		b := eval.ActiveBudget
		fraction := 0.0
		if b.Amount.IsPositive() {
			fraction = eval.SpentToDate.Div(b.Amount).InexactFloat64()
		}
		style := theme.UsageStyle(fraction)

		lines = append(lines,
			fmt.Sprintf("%s to %s", b.WindowStart.Format("2006-01-02"), b.WindowEnd.Format("2006-01-02")),
			fmt.Sprintf("Spent     %s / %s", eval.SpentToDate.StringFixed(2), b.Amount.StringFixed(2)),
			"Remaining "+style.Render(eval.Remaining.StringFixed(2)),
			style.Render(Gauge(fraction, width-2)),
		)
	}

	if m.snapshot != nil && !m.snapshot.Linked {
		lines = append(lines, "", theme.ErrorStyle.Render("Mailbox not linked. Press l to link."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) notificationsView(width int) string {
	title := "Notifications"
	var notifications []model.Notification
	if m.snapshot != nil {
		notifications = m.snapshot.Notifications
	}
	unread := 0
	for _, n := range notifications {
		if n.Unread() {
			unread++
		}
	}
	if unread > 0 {
		title = fmt.Sprintf("Notifications (%d unread)", unread)
	}
	lines := []string{theme.TitleStyle.Render(title)}

	if len(notifications) == 0 {
		lines = append(lines, theme.HelpStyle.Render("Nothing new."))
		return strings.Join(lines, "\n")
	}

	for i, n := range notifications {
		text := n.CreatedAt.Local().Format("Jan 02 15:04") + "  " + n.Message
		text = lipgloss.NewStyle().Width(width - 3).Render(text)
		switch {
		case m.focus == focusNotifications && i == m.notifCursor:
			lines = append(lines, theme.SelectedItemStyle.Render(text))
		case !n.Unread():
			lines = append(lines, theme.HelpStyle.Render(text))
		default:
			lines = append(lines, theme.ListItemStyle.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

// totals sums the listed transactions per direction.
func totals(txs []model.StoredTransaction) string {
	var in, out decimal.Decimal
	for _, t := range txs {
		if t.Direction == model.DirectionIncome {
			in = in.Add(t.Amount)
		} else {
			out = out.Add(t.Amount)
		}
	}
	return "In " + theme.DirectionStyle(model.DirectionIncome).Render(in.StringFixed(2)) +
		"  Out " + theme.DirectionStyle(model.DirectionExpense).Render(out.StringFixed(2))
}

// Gauge draws a bar of width cells filled to fraction, with the percentage.
func Gauge(fraction float64, width int) string {
	label := fmt.Sprintf(" %3.0f%%", fraction*100)
	cells := width - len(label)
	if cells < 1 {
		return strings.TrimSpace(label)
	}

	filled := int(fraction * float64(cells))
	if filled > cells {
		filled = cells
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", cells-filled) + label
}
