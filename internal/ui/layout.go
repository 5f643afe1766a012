package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-guardian/internal/theme"
)

// AppName is shown at the left of the header bar.
const AppName = "Goal Guardian"

// Layout splits the terminal into the header bar, the content area, and the
// status bar.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width of the content area.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left between the header and status bars.
func (l Layout) ContentHeight() int {
	return l.Height - 2
}

// SyncSummary counts accounts by ingestion state.
type SyncSummary struct {
	Running int
	Failed  int
}

// String describes the summary for the header bar. Running passes win
// over failures so a retry in progress is visible.
func (s SyncSummary) String() string {
	switch {
	case s.Running > 0:
		return fmt.Sprintf("syncing (%d)", s.Running)
	case s.Failed > 0:
		return fmt.Sprintf("⚠ %d account(s) failed to sync", s.Failed)
	default:
		return "idle"
	}
}

// Header is the content of the top bar.
type Header struct {
	// Account is the username on the dashboard. Empty before one is chosen.
	Account string

	// Unread is the number of unread notifications for Account.
	Unread int

	Sync SyncSummary
}

// Title returns the left-hand header text.
func (h Header) Title() string {
	if h.Account == "" {
		return AppName
	}
	title := AppName + " · " + h.Account
	if h.Unread > 0 {
		title += fmt.Sprintf(" [%d new]", h.Unread)
	}
	return title
}

// RenderHeader renders the title on the left and the sync summary on the
// right, padded to the full width.
func (l Layout) RenderHeader(h Header) string {
	title := theme.HeaderStyle.Render(h.Title())

	syncStyle := theme.HeaderStyle.Align(lipgloss.Right)
	if h.Sync.Running == 0 && h.Sync.Failed > 0 {
		syncStyle = syncStyle.Foreground(theme.ColorRed)
	}
	sync := syncStyle.Render(h.Sync.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, title, fill(theme.HeaderStyle, l.Width-lipgloss.Width(title)-lipgloss.Width(sync)), sync)
}

// StatusLine is the content of the bottom bar. Alert lines, such as a
// rejected mailbox login, are drawn in the error color.
type StatusLine struct {
	Text  string
	Alert bool
}

// RenderStatusBar renders the status line padded to the full width.
func (l Layout) RenderStatusBar(s StatusLine) string {
	style := theme.StatusBarStyle
	if s.Alert {
		style = style.Foreground(theme.ColorRed).Bold(true)
	}
	rendered := style.Render(s.Text)
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, fill(theme.StatusBarStyle, l.Width-lipgloss.Width(rendered)))
}

// fill returns width blank cells in the background of style.
func fill(style lipgloss.Style, width int) string {
	if width < 0 {
		width = 0
	}
	return lipgloss.NewStyle().
		Width(width).
		Background(style.GetBackground()).
		Render("")
}

// RenderColumns splits width between a left and right panel. The left panel
// gets leftShare of the width, clamped to a usable minimum. Narrow
// terminals stack the panels instead.
func (l Layout) RenderColumns(leftShare float64, left, right func(width int) string) string {
	leftWidth := int(float64(l.ContentWidth()) * leftShare)
	if leftWidth < 30 {
		leftWidth = 30
	}
	rightWidth := l.ContentWidth() - leftWidth
	if rightWidth < 20 {
		return lipgloss.JoinVertical(lipgloss.Left, left(l.ContentWidth()), right(l.ContentWidth()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left(leftWidth), right(rightWidth))
}

// Compose stacks the header, content, and status bar into one view.
func (l Layout) Compose(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
