package accountlist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-guardian/internal/model"
	gsync "github.com/nhle/goal-guardian/internal/sync"
	"github.com/nhle/goal-guardian/internal/theme"
)

// AccountItem wraps a model.Account so it can be used in a bubbles/list.
type AccountItem struct {
	Account model.Account
}

// FilterValue returns the string used for fuzzy filtering.
func (i AccountItem) FilterValue() string { return i.Account.Username }

// Title returns the username.
func (i AccountItem) Title() string { return i.Account.Username }

// Description returns the mailbox summary.
func (i AccountItem) Description() string {
	if i.Account.MailboxAddress == "" {
		return "no mailbox"
	}
	return i.Account.MailboxAddress + " | " + i.Account.BankID
}

// ItemDelegate implements list.ItemDelegate for rendering account rows.
type ItemDelegate struct {
	// statuses maps account ids to their latest ingestion status. Shared by
	// reference with the Model so updates are visible.
	statuses map[string]gsync.SyncStatus
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single account line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ai, ok := item.(AccountItem)
	if !ok {
		return
	}
	a := ai.Account

	bank := "---"
	if a.BankID != "" {
		bank = strings.ToUpper(a.BankID)
	}
	bankBadge := lipgloss.NewStyle().
		Foreground(theme.ColorBlue).
		Bold(true).
		Render(fmt.Sprintf("%-7s", bank))

	mailbox := a.MailboxAddress
	if mailbox == "" {
		mailbox = "not linked"
	}
	mailbox = lipgloss.NewStyle().Foreground(theme.ColorGray).Render(mailbox)

	line := fmt.Sprintf("%s %s  %s%s", bankBadge, a.Username, mailbox, d.statusText(a.ID))

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// statusText summarizes the last ingestion pass for an account.
func (d ItemDelegate) statusText(accountID string) string {
	st, ok := d.statuses[accountID]
	if !ok {
		return ""
	}

	switch st.State {
	case gsync.SyncRunning:
		return lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("  syncing")
	case gsync.SyncError:
		return lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("  ⚠ sync failed")
	}

	if st.LastSync.IsZero() {
		return ""
	}
	text := "  synced " + relativeTime(st.LastSync)
	if st.LastNew > 0 {
		text += fmt.Sprintf(", %d new", st.LastNew)
	}
	return lipgloss.NewStyle().Foreground(theme.ColorGray).Render(text)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
