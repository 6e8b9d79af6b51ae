package reporting

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolrelay/internal/analysis"
	"wolrelay/internal/models"
)

func TestGenerateSessionReport(t *testing.T) {
	l2 := analysis.NewRelayStats(models.LayerLink)
	l4 := analysis.NewRelayStats(models.LayerTransport)

	l2.RecordCaptured()
	l2.RecordRelay(models.RelayEvent{Timestamp: time.Now(), Layer: models.LayerLink, Origin: "eth0#2", Target: "00:11:22:33:44:55", Egress: 2})
	l4.RecordCaptured()
	l4.RecordRelay(models.RelayEvent{Timestamp: time.Now(), Layer: models.LayerTransport, Origin: "192.168.5.7:4000", Target: "66:77:88:99:aa:bb", Egress: 1})

	dir := filepath.Join(t.TempDir(), "reports")
	filename, err := GenerateSessionReport(dir, Session{
		Started:    time.Now().Add(-time.Minute),
		Interfaces: []string{"eth0", "eth1"},
		ListenOn:   []netip.AddrPort{netip.MustParseAddrPort("0.0.0.0:9")},
		Networks:   []netip.Prefix{netip.MustParsePrefix("192.168.5.0/24")},
		Stats:      []*analysis.RelayStats{l2, l4},
	})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(filename))

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "wolrelay Session Report")
	assert.Contains(t, html, "00:11:22:33:44:55")
	assert.Contains(t, html, "66:77:88:99:aa:bb")
	assert.Contains(t, html, "0.0.0.0:9 (discard)")
	assert.Contains(t, html, "192.168.5.0/24")
	assert.Contains(t, html, "eth0, eth1")
	assert.Contains(t, html, "<td>layer2</td><td>1</td><td>1</td><td>0</td><td>2</td><td>0</td>")
	assert.Contains(t, html, "No alerts triggered during this session.")
}

func TestGenerateSessionReportEmpty(t *testing.T) {
	filename, err := GenerateSessionReport(t.TempDir(), Session{Started: time.Now()})
	require.NoError(t, err)

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(content), "No magic packets relayed during this session.")
	assert.NotContains(t, string(content), "Listening on:")
}
