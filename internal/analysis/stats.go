package analysis

import (
	"sort"
	"sync"
	"time"

	"wolrelay/internal/models"
)

// TargetStat holds relay counts for a single target address.
type TargetStat struct {
	Target  string
	Relayed int64
}

// Counters is a point-in-time copy of a layer's totals.
type Counters struct {
	Layer        models.Layer
	Captured     int64
	Relayed      int64
	Suppressed   int64
	EgressSent   int64
	EgressFailed int64
}

// RelayStats tracks one layer's relay activity. Capture goroutines, the
// relay goroutine, the dashboard and the metrics exporter all touch it, so
// every method locks.
type RelayStats struct {
	mu             sync.Mutex
	layer          models.Layer
	counters       Counters
	windowCaptured int64
	windowRelayed  int64
	lastTick       time.Time
	targetRelays   map[string]int64

	events    []models.RelayEvent
	maxEvents int
	detector  *StormDetector
}

// NewRelayStats creates statistics for one layer.
func NewRelayStats(layer models.Layer) *RelayStats {
	return &RelayStats{
		layer:        layer,
		counters:     Counters{Layer: layer},
		lastTick:     time.Now(),
		targetRelays: make(map[string]int64),
		events:       make([]models.RelayEvent, 0),
		maxEvents:    50,
		detector:     NewStormDetector(DefaultConfig()),
	}
}

// Layer returns the layer these statistics describe.
func (s *RelayStats) Layer() models.Layer {
	return s.layer
}

// RecordCaptured counts a validated magic packet handed to the relay stage.
func (s *RelayStats) RecordCaptured() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Captured++
	s.windowCaptured++
}

// RecordRelay counts the outcome of one relay decision.
func (s *RelayStats) RecordRelay(ev models.RelayEvent) {
	s.mu.Lock()
	if ev.Suppressed {
		s.counters.Suppressed++
	} else {
		s.counters.Relayed++
		s.windowRelayed++
		s.counters.EgressSent += int64(ev.Egress)
		s.counters.EgressFailed += int64(ev.Failed)
		s.targetRelays[ev.Target]++

		s.events = append(s.events, ev)
		if len(s.events) > s.maxEvents {
			s.events = s.events[len(s.events)-s.maxEvents:]
		}
	}
	s.mu.Unlock()

	// detector has its own mutex
	s.detector.ProcessEvent(ev)
}

// Counters returns a copy of the current totals.
func (s *RelayStats) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// GetRates returns captured and relayed packets per second since the last
// call.
func (s *RelayStats) GetRates() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration := now.Sub(s.lastTick).Seconds()
	if duration == 0 {
		return 0, 0
	}

	captured := float64(s.windowCaptured) / duration
	relayed := float64(s.windowRelayed) / duration

	s.windowCaptured = 0
	s.windowRelayed = 0
	s.lastTick = now

	return captured, relayed
}

// GetTopTargets returns the most relayed targets, busiest first.
func (s *RelayStats) GetTopTargets(limit int) []TargetStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]TargetStat, 0, len(s.targetRelays))
	for target, n := range s.targetRelays {
		stats = append(stats, TargetStat{Target: target, Relayed: n})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Relayed != stats[j].Relayed {
			return stats[i].Relayed > stats[j].Relayed
		}
		return stats[i].Target < stats[j].Target
	})

	if len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// GetRecentEvents returns up to limit of the most recent relays, oldest
// first.
func (s *RelayStats) GetRecentEvents(limit int) []models.RelayEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if len(s.events) > limit {
		start = len(s.events) - limit
	}
	result := make([]models.RelayEvent, len(s.events)-start)
	copy(result, s.events[start:])
	return result
}

// GetAlerts returns the most recent storm alerts.
func (s *RelayStats) GetAlerts(limit int) []Alert {
	return s.detector.GetRecentAlerts(limit)
}
