package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestHeader_Title(t *testing.T) {
	assert.Equal(t, "Goal Guardian", Header{}.Title())
	assert.Equal(t, "Goal Guardian · alice", Header{Account: "alice"}.Title())
	assert.Equal(t, "Goal Guardian · alice [2 new]", Header{Account: "alice", Unread: 2}.Title())
}

func TestSyncSummary_String(t *testing.T) {
	assert.Equal(t, "idle", SyncSummary{}.String())
	assert.Equal(t, "syncing (2)", SyncSummary{Running: 2, Failed: 1}.String())
	assert.Equal(t, "⚠ 1 account(s) failed to sync", SyncSummary{Failed: 1}.String())
}

func TestLayout_BarsFillWidth(t *testing.T) {
	l := NewLayout(80, 24)
	assert.Equal(t, 22, l.ContentHeight())

	header := l.RenderHeader(Header{Account: "alice", Sync: SyncSummary{Running: 1}})
	assert.Contains(t, header, "alice")
	assert.Contains(t, header, "syncing (1)")
	assert.Equal(t, 80, lipgloss.Width(header))

	status := l.RenderStatusBar(StatusLine{Text: "mailbox login failed", Alert: true})
	assert.Contains(t, status, "mailbox login failed")
	assert.Equal(t, 80, lipgloss.Width(status))
}
