package budgetform

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/nhle/goal-guardian/internal/theme"
)

// BudgetSubmittedMsg is dispatched when the user confirms a new budget.
type BudgetSubmittedMsg struct {
	AccountID string
	Amount    decimal.Decimal
	Days      int
}

// BudgetFormCancelMsg is dispatched when the user cancels the form.
type BudgetFormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	amount string
	days   string
}

// Model is the Bubble Tea model for the set-budget form.
type Model struct {
	form        *huh.Form
	fb          *formBindings
	accountID   string
	defaultDays int
	width       int
	height      int
}

// New creates a budget form offering defaultDays as the window length.
func New(defaultDays, width, height int) Model {
	if defaultDays < 1 {
		defaultDays = 30
	}
	return Model{
		fb:          &formBindings{},
		defaultDays: defaultDays,
		width:       width,
		height:      height,
	}
}

// Start initializes the form for accountID.
func (m *Model) Start(accountID string) tea.Cmd {
	m.accountID = accountID
	m.fb.amount = ""
	m.fb.days = strconv.Itoa(m.defaultDays)
	m.form = m.buildForm()
	return m.form.Init()
}

// DefaultDays returns the window length the form offers.
func (m Model) DefaultDays() int {
	return m.defaultDays
}

// Update handles messages for the budget form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return BudgetFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the budget form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Set Budget")

	hint := theme.HelpStyle.Render("The new budget starts today and replaces any active one.")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(title + "\n" + hint + "\n\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount").
				Placeholder("e.g. 1000.00").
				Value(&m.fb.amount).
				Validate(ValidateAmount),
			huh.NewInput().
				Title("Duration (days)").
				Value(&m.fb.days).
				Validate(ValidateDays),
		),
	).WithWidth(m.formWidth())
}

func (m Model) handleSubmit() tea.Cmd {
	amount, err := parseAmount(m.fb.amount)
	if err != nil {
		return func() tea.Msg { return BudgetFormCancelMsg{} }
	}
	days, err := strconv.Atoi(strings.TrimSpace(m.fb.days))
	if err != nil {
		return func() tea.Msg { return BudgetFormCancelMsg{} }
	}

	msg := BudgetSubmittedMsg{AccountID: m.accountID, Amount: amount, Days: days}
	return func() tea.Msg { return msg }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// ValidateAmount accepts positive decimal amounts.
func ValidateAmount(s string) error {
	d, err := parseAmount(s)
	if err != nil {
		return fmt.Errorf("amount must be a number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// ValidateDays accepts whole numbers of days from 1 to 366.
func ValidateDays(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("duration must be a whole number of days")
	}
	if n < 1 || n > 366 {
		return fmt.Errorf("duration must be between 1 and 366 days")
	}
	return nil
}
