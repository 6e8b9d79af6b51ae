// Package metrics exports relay statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"wolrelay/internal/analysis"
)

type relayCollector struct {
	stats []*analysis.RelayStats
	descs map[string]*prometheus.Desc
}

// NewCollector returns a collector reporting the counters of each layer.
func NewCollector(stats ...*analysis.RelayStats) prometheus.Collector {
	labels := []string{"layer"}
	return &relayCollector{
		stats: stats,
		descs: map[string]*prometheus.Desc{
			"captured":     prometheus.NewDesc("wolrelay_captured_total", "Magic packets captured and queued for relay", labels, nil),
			"relayed":      prometheus.NewDesc("wolrelay_relayed_total", "Magic packets relayed", labels, nil),
			"suppressed":   prometheus.NewDesc("wolrelay_suppressed_total", "Magic packets dropped inside the cooldown window", labels, nil),
			"egress":       prometheus.NewDesc("wolrelay_egress_sent_total", "Individual sends of relayed packets", labels, nil),
			"egressErrors": prometheus.NewDesc("wolrelay_egress_errors_total", "Individual sends that failed", labels, nil),
			"alerts":       prometheus.NewDesc("wolrelay_storm_alerts", "Storm alerts currently retained", labels, nil),
		},
	}
}

func (c *relayCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.descs {
		ch <- desc
	}
}

func (c *relayCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats {
		counters := s.Counters()
		layer := string(counters.Layer)

		ch <- prometheus.MustNewConstMetric(c.descs["captured"], prometheus.CounterValue, float64(counters.Captured), layer)
		ch <- prometheus.MustNewConstMetric(c.descs["relayed"], prometheus.CounterValue, float64(counters.Relayed), layer)
		ch <- prometheus.MustNewConstMetric(c.descs["suppressed"], prometheus.CounterValue, float64(counters.Suppressed), layer)
		ch <- prometheus.MustNewConstMetric(c.descs["egress"], prometheus.CounterValue, float64(counters.EgressSent), layer)
		ch <- prometheus.MustNewConstMetric(c.descs["egressErrors"], prometheus.CounterValue, float64(counters.EgressFailed), layer)
		ch <- prometheus.MustNewConstMetric(c.descs["alerts"], prometheus.GaugeValue, float64(len(s.GetAlerts(maxAlerts))), layer)
	}
}
