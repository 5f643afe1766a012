package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-guardian/internal/keys"
	"github.com/nhle/goal-guardian/internal/theme"
)

// Model is the keyboard shortcut overlay.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders every binding grouped by area, followed by a short note on
// how budget warnings behave.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	note := theme.HelpStyle.Render(
		"A budget warning is raised once per crossing. Mark it read to be warned again.",
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, "", note)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// ShortView renders the one-line binding summary for the status bar.
func (m Model) ShortView() string {
	m.help.ShowAll = false
	return m.help.View(m.keys)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

// Update handles messages for the help view.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}
