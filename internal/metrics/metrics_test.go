package metrics

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolrelay/internal/analysis"
	"wolrelay/internal/models"
)

func populated() (*analysis.RelayStats, *analysis.RelayStats) {
	l2 := analysis.NewRelayStats(models.LayerLink)
	l4 := analysis.NewRelayStats(models.LayerTransport)

	now := time.Now()
	l2.RecordCaptured()
	l2.RecordCaptured()
	l2.RecordRelay(models.RelayEvent{Timestamp: now, Layer: models.LayerLink, Target: "00:11:22:33:44:55", Egress: 2, Failed: 1})
	l2.RecordRelay(models.RelayEvent{Timestamp: now, Layer: models.LayerLink, Target: "00:11:22:33:44:55", Suppressed: true})

	l4.RecordCaptured()
	l4.RecordRelay(models.RelayEvent{Timestamp: now, Layer: models.LayerTransport, Target: "66:77:88:99:aa:bb", Egress: 3})
	return l2, l4
}

func TestCollector(t *testing.T) {
	l2, l4 := populated()

	expected := `
# HELP wolrelay_relayed_total Magic packets relayed
# TYPE wolrelay_relayed_total counter
wolrelay_relayed_total{layer="layer2"} 1
wolrelay_relayed_total{layer="layer4"} 1
# HELP wolrelay_suppressed_total Magic packets dropped inside the cooldown window
# TYPE wolrelay_suppressed_total counter
wolrelay_suppressed_total{layer="layer2"} 1
wolrelay_suppressed_total{layer="layer4"} 0
# HELP wolrelay_egress_errors_total Individual sends that failed
# TYPE wolrelay_egress_errors_total counter
wolrelay_egress_errors_total{layer="layer2"} 1
wolrelay_egress_errors_total{layer="layer4"} 0
`
	err := testutil.CollectAndCompare(NewCollector(l2, l4), strings.NewReader(expected),
		"wolrelay_relayed_total", "wolrelay_suppressed_total", "wolrelay_egress_errors_total")
	assert.NoError(t, err)
}

func TestCollectorMetricCount(t *testing.T) {
	l2, l4 := populated()
	assert.Equal(t, 12, testutil.CollectAndCount(NewCollector(l2, l4)))
	assert.Equal(t, 0, testutil.CollectAndCount(NewCollector()))
}

func TestServerServesMetrics(t *testing.T) {
	l2, _ := populated()
	s := NewServer("127.0.0.1:0", l2)
	require.NoError(t, s.Start())
	defer s.Stop()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `wolrelay_captured_total{layer="layer2"} 2`)
	assert.Contains(t, string(body), `wolrelay_egress_sent_total{layer="layer2"} 2`)
}

func TestServerStartBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0")
	require.NoError(t, first.Start())
	defer first.Stop()

	second := NewServer(first.Addr())
	assert.Error(t, second.Start())
}
