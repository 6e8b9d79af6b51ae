package analysis

import (
	"fmt"
	"sync"
	"time"

	"wolrelay/internal/models"
)

// AnomalyType represents the type of anomaly detected.
type AnomalyType string

const (
	// AnomalyRelayStorm fires when one target keeps re-entering the relay
	// stage inside its cooldown window, typically because overlapping
	// topologies reflect relayed broadcasts back to a capture unit.
	AnomalyRelayStorm AnomalyType = "RELAY_STORM"
	// AnomalyEgressFailure fires when a relay decision reached no egress path.
	AnomalyEgressFailure AnomalyType = "EGRESS_FAILURE"
)

// Config holds configuration for the storm detector.
type Config struct {
	StormThreshold  int           // suppressed packets per target per second
	FailureCooldown time.Duration // minimum gap between egress failure alerts
	CleanupInterval time.Duration
	DataRetention   time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		StormThreshold:  20,
		FailureCooldown: 10 * time.Second,
		CleanupInterval: time.Minute,
		DataRetention:   5 * time.Minute,
	}
}

// Alert represents a detected anomaly.
type Alert struct {
	Type      AnomalyType
	Layer     models.Layer
	Source    string // target address or origin
	Message   string
	Timestamp time.Time
}

// StormDetector watches relay decisions for patterns that indicate a
// misconfigured topology.
type StormDetector struct {
	mu sync.Mutex

	config Config

	suppressedCount  map[string]int
	suppressedWindow map[string]time.Time

	lastFailureAlert time.Time

	alerts    []Alert
	maxAlerts int

	lastCleanup time.Time
}

// NewStormDetector creates a detector.
func NewStormDetector(cfg Config) *StormDetector {
	return &StormDetector{
		config:           cfg,
		suppressedCount:  make(map[string]int),
		suppressedWindow: make(map[string]time.Time),
		alerts:           make([]Alert, 0),
		maxAlerts:        20,
		lastCleanup:      time.Now(),
	}
}

// ProcessEvent analyzes one relay decision.
func (d *StormDetector) ProcessEvent(ev models.RelayEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if now.Sub(d.lastCleanup) > d.config.CleanupInterval {
		d.cleanup(now)
		d.lastCleanup = now
	}

	if ev.Suppressed {
		d.detectStorm(ev, now)
		return
	}
	d.detectEgressFailure(ev, now)
}

func (d *StormDetector) cleanup(now time.Time) {
	for target, windowStart := range d.suppressedWindow {
		if now.Sub(windowStart) > d.config.DataRetention {
			delete(d.suppressedWindow, target)
			delete(d.suppressedCount, target)
		}
	}
}

func (d *StormDetector) detectStorm(ev models.RelayEvent, now time.Time) {
	start, ok := d.suppressedWindow[ev.Target]
	if !ok || now.Sub(start) > time.Second {
		d.suppressedWindow[ev.Target] = now
		d.suppressedCount[ev.Target] = 0
	}

	d.suppressedCount[ev.Target]++

	if d.suppressedCount[ev.Target] > d.config.StormThreshold {
		d.addAlert(Alert{
			Type:      AnomalyRelayStorm,
			Layer:     ev.Layer,
			Source:    ev.Target,
			Message:   fmt.Sprintf("Relay storm for %s: %d suppressed packets in 1 second", ev.Target, d.suppressedCount[ev.Target]),
			Timestamp: now,
		})
		d.suppressedCount[ev.Target] = 0
		d.suppressedWindow[ev.Target] = now
	}
}

func (d *StormDetector) detectEgressFailure(ev models.RelayEvent, now time.Time) {
	if ev.Egress > 0 || ev.Failed == 0 {
		return
	}
	if !d.lastFailureAlert.IsZero() && now.Sub(d.lastFailureAlert) < d.config.FailureCooldown {
		return
	}

	d.addAlert(Alert{
		Type:      AnomalyEgressFailure,
		Layer:     ev.Layer,
		Source:    ev.Origin,
		Message:   fmt.Sprintf("All %d egress sends failed for %s", ev.Failed, ev.Target),
		Timestamp: now,
	})
	d.lastFailureAlert = now
}

func (d *StormDetector) addAlert(alert Alert) {
	d.alerts = append(d.alerts, alert)
	if len(d.alerts) > d.maxAlerts {
		d.alerts = d.alerts[len(d.alerts)-d.maxAlerts:]
	}
}

// GetRecentAlerts returns the most recent alerts, newest last.
func (d *StormDetector) GetRecentAlerts(limit int) []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.alerts) == 0 {
		return []Alert{}
	}

	start := 0
	if len(d.alerts) > limit {
		start = len(d.alerts) - limit
	}

	result := make([]Alert, len(d.alerts)-start)
	copy(result, d.alerts[start:])
	return result
}
