package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolrelay/internal/models"
)

func relayed(target string, egress int) models.RelayEvent {
	return models.RelayEvent{
		Timestamp: time.Now(),
		Layer:     models.LayerLink,
		Origin:    "eth0#2",
		Target:    target,
		Length:    116,
		Egress:    egress,
	}
}

func TestRelayStatsCounters(t *testing.T) {
	s := NewRelayStats(models.LayerLink)

	s.RecordCaptured()
	s.RecordCaptured()
	s.RecordRelay(relayed("00:11:22:33:44:55", 2))
	ev := relayed("00:11:22:33:44:55", 0)
	ev.Suppressed = true
	s.RecordRelay(ev)

	c := s.Counters()
	assert.Equal(t, models.LayerLink, c.Layer)
	assert.EqualValues(t, 2, c.Captured)
	assert.EqualValues(t, 1, c.Relayed)
	assert.EqualValues(t, 1, c.Suppressed)
	assert.EqualValues(t, 2, c.EgressSent)
}

func TestGetTopTargets(t *testing.T) {
	s := NewRelayStats(models.LayerTransport)
	for i := 0; i < 3; i++ {
		s.RecordRelay(relayed("aa:aa:aa:aa:aa:aa", 1))
	}
	s.RecordRelay(relayed("bb:bb:bb:bb:bb:bb", 1))

	top := s.GetTopTargets(1)

	require.Len(t, top, 1)
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", top[0].Target)
	assert.EqualValues(t, 3, top[0].Relayed)
}

func TestRecentEventsBounded(t *testing.T) {
	s := NewRelayStats(models.LayerLink)
	for i := 0; i < 60; i++ {
		s.RecordRelay(relayed("aa:aa:aa:aa:aa:aa", 1))
	}

	assert.Len(t, s.GetRecentEvents(100), 50)
	assert.Len(t, s.GetRecentEvents(5), 5)
}

func TestGetRatesResetsWindow(t *testing.T) {
	s := NewRelayStats(models.LayerLink)
	s.RecordCaptured()
	s.RecordRelay(relayed("aa:aa:aa:aa:aa:aa", 1))
	time.Sleep(10 * time.Millisecond)

	captured, relayedRate := s.GetRates()
	assert.Greater(t, captured, 0.0)
	assert.Greater(t, relayedRate, 0.0)

	time.Sleep(10 * time.Millisecond)
	captured, relayedRate = s.GetRates()
	assert.Zero(t, captured)
	assert.Zero(t, relayedRate)
}

func TestStormDetection(t *testing.T) {
	d := NewStormDetector(Config{StormThreshold: 3, FailureCooldown: time.Second, CleanupInterval: time.Minute, DataRetention: time.Minute})
	now := time.Now()

	for i := 0; i < 4; i++ {
		d.ProcessEvent(models.RelayEvent{Timestamp: now, Layer: models.LayerLink, Target: "aa:aa:aa:aa:aa:aa", Suppressed: true})
	}

	alerts := d.GetRecentAlerts(10)
	require.Len(t, alerts, 1)
	assert.Equal(t, AnomalyRelayStorm, alerts[0].Type)
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", alerts[0].Source)
}

func TestEgressFailureAlertThrottled(t *testing.T) {
	d := NewStormDetector(Config{StormThreshold: 100, FailureCooldown: time.Minute, CleanupInterval: time.Minute, DataRetention: time.Minute})
	now := time.Now()
	ev := models.RelayEvent{Timestamp: now, Layer: models.LayerTransport, Target: "aa:aa:aa:aa:aa:aa", Failed: 2}

	d.ProcessEvent(ev)
	ev.Timestamp = now.Add(time.Second)
	d.ProcessEvent(ev)

	alerts := d.GetRecentAlerts(10)
	require.Len(t, alerts, 1)
	assert.Equal(t, AnomalyEgressFailure, alerts[0].Type)
}

func TestGetServiceName(t *testing.T) {
	assert.Equal(t, "discard", GetServiceName(9))
	assert.Equal(t, "echo", GetServiceName(7))
	assert.Equal(t, "4000", GetServiceName(4000))
}
