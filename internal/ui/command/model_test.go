package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"fetch", Command{Name: "fetch", Args: []string{}}},
		{"  sync ", Command{Name: "fetch", Args: []string{}}},
		{"budget 1000 14", Command{Name: "budget", Args: []string{"1000", "14"}}},
		{"Account add bob bob@example.com", Command{Name: "account add", Args: []string{"bob", "bob@example.com"}}},
		{"income 2500 Salary March", Command{Name: "income", Args: []string{"2500", "Salary", "March"}}},
		{"accounts", Command{Name: "accounts", Args: []string{}}},
		{"q", Command{Name: "quit", Args: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)

	_, err = Parse("launch rockets")
	assert.Error(t, err)
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 24)
	for _, r := range "fetch" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("fetch"), cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
