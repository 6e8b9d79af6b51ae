// Package reporting writes an HTML summary of a relay session.
package reporting

import (
	"fmt"
	"html"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wolrelay/internal/analysis"
)

// Session describes what ran and what it did.
type Session struct {
	Started    time.Time
	Interfaces []string
	ListenOn   []netip.AddrPort
	Networks   []netip.Prefix
	Stats      []*analysis.RelayStats
}

// GenerateSessionReport writes report_<timestamp>.html into dir and returns
// its path.
func GenerateSessionReport(dir string, s Session) (string, error) {
	now := time.Now()
	timestamp := now.Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("report_%s.html", timestamp))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>wolrelay Session Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .alert { color: #d9534f; font-weight: bold; }
    </style>
</head>
<body>
    <h1>wolrelay Session Report</h1>
    <div class="summary">
        <p><strong>Date:</strong> %s</p>
        <p><strong>Duration:</strong> %s</p>
`, timestamp, now.Format(time.RFC1123), formatDuration(now.Sub(s.Started)))

	if len(s.Interfaces) > 0 {
		fmt.Fprintf(&b, "        <p><strong>Interfaces:</strong> %s</p>\n", html.EscapeString(strings.Join(s.Interfaces, ", ")))
	}
	if len(s.ListenOn) > 0 {
		listen := make([]string, 0, len(s.ListenOn))
		for _, a := range s.ListenOn {
			listen = append(listen, fmt.Sprintf("%s (%s)", a, analysis.GetServiceName(int(a.Port()))))
		}
		fmt.Fprintf(&b, "        <p><strong>Listening on:</strong> %s</p>\n", html.EscapeString(strings.Join(listen, ", ")))
	}
	if len(s.Networks) > 0 {
		nets := make([]string, 0, len(s.Networks))
		for _, n := range s.Networks {
			nets = append(nets, n.String())
		}
		fmt.Fprintf(&b, "        <p><strong>Relaying to:</strong> %s</p>\n", strings.Join(nets, ", "))
	}
	b.WriteString("    </div>\n")

	b.WriteString(`
    <h2>Totals</h2>
    <table>
        <thead>
            <tr>
                <th>Layer</th>
                <th>Captured</th>
                <th>Relayed</th>
                <th>Suppressed</th>
                <th>Sends</th>
                <th>Failed Sends</th>
            </tr>
        </thead>
        <tbody>
`)
	var alerts []analysis.Alert
	var top []analysis.TargetStat
	for _, st := range s.Stats {
		c := st.Counters()
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
			c.Layer, c.Captured, c.Relayed, c.Suppressed, c.EgressSent, c.EgressFailed)
		alerts = append(alerts, st.GetAlerts(100)...)
		top = append(top, st.GetTopTargets(10)...)
	}
	b.WriteString(`        </tbody>
    </table>

    <h2>Top Targets</h2>
    <table>
        <thead>
            <tr>
                <th>Target</th>
                <th>Relays</th>
            </tr>
        </thead>
        <tbody>
`)
	if len(top) == 0 {
		b.WriteString("            <tr><td colspan=\"2\">No magic packets relayed during this session.</td></tr>\n")
	}
	for _, t := range top {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%d</td></tr>\n", html.EscapeString(t.Target), t.Relayed)
	}

	b.WriteString(`        </tbody>
    </table>

    <h2>Alerts</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Layer</th>
                <th>Type</th>
                <th>Source</th>
                <th>Message</th>
            </tr>
        </thead>
        <tbody>
`)
	if len(alerts) == 0 {
		b.WriteString("            <tr><td colspan=\"5\">No alerts triggered during this session.</td></tr>\n")
	}
	for _, a := range alerts {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%s</td><td class=\"alert\">%s</td><td>%s</td><td>%s</td></tr>\n",
			a.Timestamp.Format("15:04:05"), a.Layer, a.Type, html.EscapeString(a.Source), html.EscapeString(a.Message))
	}

	b.WriteString(`        </tbody>
    </table>
</body>
</html>`)

	if err := os.WriteFile(filename, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
