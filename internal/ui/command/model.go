package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-guardian/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Names lists the commands the palette completes.
var Names = []string{
	"fetch",
	"budget",
	"link",
	"expense",
	"income",
	"account add",
	"accounts",
	"reload",
	"quit",
}

// Command is a parsed palette command.
type Command struct {
	Name string
	Args []string
}

// Parse splits a palette line into a command and its arguments. Two-word
// commands such as "account add" are matched before single words.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	if len(fields) >= 2 {
		pair := strings.ToLower(fields[0] + " " + fields[1])
		for _, n := range Names {
			if n == pair {
				return Command{Name: n, Args: fields[2:]}, nil
			}
		}
	}

	name := strings.ToLower(fields[0])
	switch name {
	case "q", "exit":
		name = "quit"
	case "sync", "refresh":
		name = "fetch"
	}
	for _, n := range Names {
		if n == name {
			return Command{Name: n, Args: fields[1:]}, nil
		}
	}
	return Command{}, fmt.Errorf("unknown command %q", fields[0])
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	usage := theme.HelpStyle.Render(
		"fetch | budget <amount> [days] | link | account add <username> [email] | accounts | reload | quit",
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View(), "", usage)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
