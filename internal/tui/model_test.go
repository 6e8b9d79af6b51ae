package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolrelay/internal/analysis"
	"wolrelay/internal/models"
	"wolrelay/internal/shutdown"
)

func newStats() (*analysis.RelayStats, *analysis.RelayStats) {
	l2 := analysis.NewRelayStats(models.LayerLink)
	l4 := analysis.NewRelayStats(models.LayerTransport)
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

	l2.RecordCaptured()
	l2.RecordRelay(models.RelayEvent{Timestamp: t0, Layer: models.LayerLink, Origin: "eth0#2", Target: "00:11:22:33:44:55", Egress: 2})
	l4.RecordCaptured()
	l4.RecordRelay(models.RelayEvent{Timestamp: t0.Add(time.Second), Layer: models.LayerTransport, Origin: "192.168.5.7:4000", Target: "66:77:88:99:aa:bb", Egress: 1})
	return l2, l4
}

func TestTickRefreshesCountersAndTable(t *testing.T) {
	l2, l4 := newStats()
	m := NewRelayModel(shutdown.New(), "eth0, 0.0.0.0:9", l2, l4)

	updated, cmd := m.Update(TickMsg(time.Now()))
	require.NotNil(t, cmd)
	rm := updated.(RelayModel)

	rows := rm.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "layer4", rows[0][1])
	assert.Equal(t, "eth0#2", rows[1][2])
	assert.Equal(t, int64(1), rm.layers[0].counters.Relayed)

	view := rm.View()
	assert.Contains(t, view, "LAYER2")
	assert.Contains(t, view, "LAYER4")
	assert.Contains(t, view, "eth0, 0.0.0.0:9")
}

func TestQuitTriggersShutdown(t *testing.T) {
	sig := shutdown.New()
	m := NewRelayModel(sig, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, sig.Triggered())
}

func TestExternalShutdownQuits(t *testing.T) {
	sig := shutdown.New()
	m := NewRelayModel(sig, "")
	sig.Trigger()

	_, cmd := m.Update(TickMsg(time.Now()))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEmptyView(t *testing.T) {
	m := NewRelayModel(shutdown.New(), "")
	assert.Contains(t, m.View(), "No relay layer running")
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0.50 pps", formatRate(0.5))
	assert.Equal(t, "1.50 kpps", formatRate(1500))
}
