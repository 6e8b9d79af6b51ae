// Package tui renders a live dashboard of relay activity.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wolrelay/internal/analysis"
	"wolrelay/internal/models"
	"wolrelay/internal/shutdown"
)

const (
	recentRows = 10
	alertRows  = 5
)

type TickMsg time.Time

type layerView struct {
	stats    *analysis.RelayStats
	counters analysis.Counters
	capRate  float64
	relRate  float64
}

type RelayModel struct {
	layers  []*layerView
	table   table.Model
	alerts  []analysis.Alert
	summary string
	signal  *shutdown.Signal
}

// NewRelayModel builds a dashboard over the statistics of each running
// layer. Quitting the dashboard triggers signal.
func NewRelayModel(signal *shutdown.Signal, summary string, stats ...*analysis.RelayStats) RelayModel {
	columns := []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Layer", Width: 8},
		{Title: "Origin", Width: 22},
		{Title: "Target", Width: 18},
		{Title: "Sent", Width: 5},
		{Title: "Failed", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(recentRows),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	views := make([]*layerView, 0, len(stats))
	for _, st := range stats {
		views = append(views, &layerView{stats: st, counters: analysis.Counters{Layer: st.Layer()}})
	}

	return RelayModel{
		layers:  views,
		table:   t,
		summary: summary,
		signal:  signal,
	}
}

func (m RelayModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// recentEvents merges the recent relays of every layer, newest last.
func (m RelayModel) recentEvents() []models.RelayEvent {
	var events []models.RelayEvent
	for _, l := range m.layers {
		events = append(events, l.stats.GetRecentEvents(recentRows)...)
	}
	sortEvents(events)
	if len(events) > recentRows {
		events = events[len(events)-recentRows:]
	}
	return events
}
