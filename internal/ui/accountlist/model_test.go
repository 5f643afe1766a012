package accountlist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-guardian/internal/keys"
	"github.com/nhle/goal-guardian/internal/model"
	gsync "github.com/nhle/goal-guardian/internal/sync"
)

type fakeLister struct {
	accounts []model.Account
	err      error
}

func (f fakeLister) ListAccounts(context.Context) ([]model.Account, error) {
	return f.accounts, f.err
}

func loaded(t *testing.T, lister fakeLister) Model {
	t.Helper()
	m := New(lister, keys.DefaultKeyMap(), 100, 20)
	msg := m.LoadAccounts()()
	m, _ = m.Update(msg)
	return m
}

func TestLoadAndSelect(t *testing.T) {
	m := loaded(t, fakeLister{accounts: []model.Account{
		{ID: "a1", Username: "alice", BankID: "hdfc", MailboxAddress: "alice@example.com"},
		{ID: "a2", Username: "bob"},
	}})

	require.Len(t, m.Accounts(), 2)
	view := m.View()
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "HDFC")
	assert.Contains(t, view, "not linked")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, AccountSelectedMsg{AccountID: "a1"}, cmd())
}

func TestLoadError(t *testing.T) {
	m := New(fakeLister{err: errors.New("boom")}, keys.DefaultKeyMap(), 100, 20)
	msg, ok := m.LoadAccounts()().(AccountsLoadedMsg)
	require.True(t, ok)
	assert.Error(t, msg.Err)
}

func TestEmptyState(t *testing.T) {
	m := loaded(t, fakeLister{})
	assert.Contains(t, m.View(), "No accounts yet.")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestStatusText(t *testing.T) {
	m := New(fakeLister{}, keys.DefaultKeyMap(), 100, 20)
	m.SetStatuses([]gsync.SyncStatus{
		{AccountID: "a1", State: gsync.SyncIdle, LastSync: time.Now(), LastNew: 3},
		{AccountID: "a2", State: gsync.SyncError},
	})

	d := ItemDelegate{statuses: m.statuses}
	assert.True(t, strings.Contains(d.statusText("a1"), "3 new"))
	assert.Contains(t, d.statusText("a2"), "sync failed")
	assert.Empty(t, d.statusText("missing"))
}
