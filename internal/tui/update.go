package tui

import (
	"slices"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"wolrelay/internal/analysis"
	"wolrelay/internal/models"
)

func (m RelayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.signal.Trigger()
			return m, tea.Quit
		}

	case TickMsg:
		// Stopped from outside, e.g. SIGTERM.
		if m.signal.Triggered() {
			return m, tea.Quit
		}

		var alerts []analysis.Alert
		for _, l := range m.layers {
			l.counters = l.stats.Counters()
			l.capRate, l.relRate = l.stats.GetRates()
			alerts = append(alerts, l.stats.GetAlerts(alertRows)...)
		}
		slices.SortFunc(alerts, func(a, b analysis.Alert) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		if len(alerts) > alertRows {
			alerts = alerts[len(alerts)-alertRows:]
		}
		m.alerts = alerts

		events := m.recentEvents()
		rows := make([]table.Row, 0, len(events))
		// newest first
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			rows = append(rows, table.Row{
				ev.Timestamp.Format("15:04:05"),
				string(ev.Layer),
				ev.Origin,
				ev.Target,
				strconv.Itoa(ev.Egress),
				strconv.Itoa(ev.Failed),
			})
		}
		m.table.SetRows(rows)

		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func sortEvents(events []models.RelayEvent) {
	slices.SortStableFunc(events, func(a, b models.RelayEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
