package mailboxform

import (
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/theme"
)

// MailboxSubmittedMsg is dispatched when the user links a mailbox.
type MailboxSubmittedMsg struct {
	AccountID string
	Address   string
	Password  string
	BankID    string
}

// MailboxFormCancelMsg is dispatched when the user cancels the form.
type MailboxFormCancelMsg struct{}

// BankOption is a selectable bank.
type BankOption struct {
	ID   string
	Name string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	address  string
	password string
	bankID   string
}

// Model is the Bubble Tea model for the link-mailbox form.
type Model struct {
	form      *huh.Form
	fb        *formBindings
	banks     []BankOption
	accountID string
	width     int
	height    int
}

// New creates a mailbox form offering the given banks.
func New(banks []BankOption, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		banks:  banks,
		width:  width,
		height: height,
	}
}

// Start initializes the form for an account, prefilled with its current
// mailbox settings. The password is never prefilled.
func (m *Model) Start(a model.Account) tea.Cmd {
	m.accountID = a.ID
	m.fb.address = a.MailboxAddress
	if m.fb.address == "" {
		m.fb.address = a.Email
	}
	m.fb.password = ""
	m.fb.bankID = a.BankID
	if m.fb.bankID == "" && len(m.banks) > 0 {
		m.fb.bankID = m.banks[0].ID
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the mailbox form.
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
		return m, func() tea.Msg { return MailboxFormCancelMsg{} }
	}

	return m, cmd
}

// View renders the mailbox form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Link Mailbox")

	hint := theme.HelpStyle.Render("The password is kept in the system keyring.")

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
	opts := make([]huh.Option[string], len(m.banks))
	for i, b := range m.banks {
		opts[i] = huh.NewOption(b.Name, b.ID)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mailbox").
				Description("IMAP login, usually your email address").
				Placeholder("you@example.com").
				Value(&m.fb.address).
				Validate(ValidateAddress),
			huh.NewInput().
				Title("Password").
				Description("Mailbox password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validateRequired("Password")),
			huh.NewSelect[string]().
				Title("Bank").
				Description("Which bank's alerts to import").
				Options(opts...).
				Value(&m.fb.bankID),
		),
	).WithWidth(m.formWidth())
}

func (m Model) handleSubmit() tea.Cmd {
	msg := MailboxSubmittedMsg{
		AccountID: m.accountID,
		Address:   strings.TrimSpace(m.fb.address),
		Password:  m.fb.password,
		BankID:    m.fb.bankID,
	}
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

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// ValidateAddress accepts a bare email address.
func ValidateAddress(s string) error {
	if err := validateRequired("Mailbox")(s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("enter a plain address like you@example.com")
	}
	return nil
}
