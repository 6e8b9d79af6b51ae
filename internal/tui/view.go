package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))
)

func (m RelayModel) View() string {
	headerText := "wolrelay"
	if m.summary != "" {
		headerText += " - " + m.summary
	}
	title := titleStyle.Render(headerText)

	var boxes []string
	for _, l := range m.layers {
		c := l.counters
		panel := fmt.Sprintf("%s\nCaptured: %d (%s)\nRelayed: %d (%s)\nSuppressed: %d\nSends: %d ok, %d failed",
			strings.ToUpper(string(c.Layer)),
			c.Captured, formatRate(l.capRate),
			c.Relayed, formatRate(l.relRate),
			c.Suppressed,
			c.EgressSent, c.EgressFailed)
		boxes = append(boxes, infoStyle.Render(panel))
	}
	if len(boxes) == 0 {
		boxes = append(boxes, infoStyle.Render("No relay layer running"))
	}

	var alertStrs []string
	for _, a := range m.alerts {
		alertStrs = append(alertStrs, alertStyle.Render(fmt.Sprintf("%s [%s] %s", a.Timestamp.Format("15:04:05"), a.Type, a.Message)))
	}
	if len(alertStrs) == 0 {
		alertStrs = append(alertStrs, "None")
	}
	alertBox := infoStyle.Render("Alerts:\n" + strings.Join(alertStrs, "\n"))

	recentBox := infoStyle.Render("Recent Relays\n" + m.table.View())

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, recentBox, alertBox)

	return body + "\nPress q to quit."
}

func formatRate(pps float64) string {
	if pps >= 1e3 {
		return fmt.Sprintf("%.2f kpps", pps/1e3)
	}
	return fmt.Sprintf("%.2f pps", pps)
}
