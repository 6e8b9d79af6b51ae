// Package layer2 relays Wake-on-LAN Ethernet frames between interfaces.
//
// Each interface gets a capture goroutine pinned to its own OS thread so a
// busy segment cannot be starved by egress writes; all captures feed one
// relay goroutine that owns every injection handle.
package layer2

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"wolrelay/internal/analysis"
	"wolrelay/internal/config"
	"wolrelay/internal/cooldown"
	"wolrelay/internal/discovery"
	"wolrelay/internal/logger"
	"wolrelay/internal/models"
	"wolrelay/internal/shutdown"
	"wolrelay/internal/wol"
)

// EthernetTypeWakeOnLAN is the ethertype of raw Ethernet magic packets.
const EthernetTypeWakeOnLAN layers.EthernetType = 0x0842

const (
	queueSize   = 8
	recvTimeout = 50 * time.Millisecond
)

type port struct {
	iface  discovery.Interface
	source FrameSource
	sink   FrameSink
}

// Worker is a running link-layer relay.
type Worker struct {
	log      *slog.Logger
	signal   *shutdown.Signal
	opener   Opener
	stats    *analysis.RelayStats
	cache    *cooldown.Cache
	now      func() time.Time
	queue    chan models.RelayMessage
	ports    []*port
	wg       sync.WaitGroup
	captures sync.WaitGroup
}

type Option func(*Worker)

// WithOpener replaces the libpcap opener.
func WithOpener(o Opener) Option {
	return func(w *Worker) { w.opener = o }
}

// WithStats records activity into s.
func WithStats(s *analysis.RelayStats) Option {
	return func(w *Worker) { w.stats = s }
}

// WithCooldown sets the cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(w *Worker) { w.cache = cooldown.New(d) }
}

// WithClock replaces time.Now for cooldown decisions.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// Start opens every configured, operational interface and starts relaying.
// It fails with models.ErrConfiguration when no interface can be used.
func Start(cfg config.Layer2Config, snap discovery.Snapshot, signal *shutdown.Signal, opts ...Option) (*Worker, error) {
	w := &Worker{
		log:    logger.Component(logger.ComponentLayer2),
		signal: signal,
		cache:  cooldown.New(cooldown.DefaultWindow),
		now:    time.Now,
		queue:  make(chan models.RelayMessage, queueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.stats == nil {
		w.stats = analysis.NewRelayStats(models.LayerLink)
	}
	if w.opener == nil {
		w.opener = PcapOpener{Log: w.log}
	}

	ifaces := w.selectInterfaces(cfg.Interfaces, snap)
	if len(ifaces) == 0 {
		w.log.Error("No suitable L2 interface available")
		return nil, fmt.Errorf("%w: no suitable layer2 interface available", models.ErrConfiguration)
	}

	for _, iface := range ifaces {
		p, err := w.open(iface)
		if err != nil {
			w.log.Warn("Unable to open interface", "interface", iface.Name, "error", err)
			continue
		}
		w.ports = append(w.ports, p)
		w.log.Debug("Listening on interface", "interface", iface.Name, "index", iface.Index)
	}
	if len(w.ports) == 0 {
		return nil, fmt.Errorf("%w: no layer2 interface could be opened", models.ErrConfiguration)
	}

	for _, p := range w.ports {
		w.captures.Add(1)
		w.wg.Add(1)
		go w.capture(p)
	}

	// The queue is closed once every producer is gone so the relay loop can
	// tell that nothing more will arrive.
	go func() {
		w.captures.Wait()
		close(w.queue)
	}()

	w.wg.Add(1)
	go w.relay()

	return w, nil
}

// Wait blocks until every capture and relay goroutine has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Interfaces returns the names of the interfaces being relayed between.
func (w *Worker) Interfaces() []string {
	names := make([]string, 0, len(w.ports))
	for _, p := range w.ports {
		names = append(names, p.iface.Name)
	}
	return names
}

// Stats returns the worker's statistics.
func (w *Worker) Stats() *analysis.RelayStats {
	return w.stats
}

func (w *Worker) selectInterfaces(names []string, snap discovery.Snapshot) []discovery.Interface {
	seen := make(map[string]bool, len(names))
	var out []discovery.Interface
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		iface, ok := snap.ByName(name)
		if !ok {
			w.log.Warn("Configured interface not found", "interface", name)
			continue
		}
		if !iface.Operational() {
			w.log.Warn("Skipping interface that is down or loopback", "interface", name)
			continue
		}
		out = append(out, iface)
	}
	return out
}

func (w *Worker) open(iface discovery.Interface) (*port, error) {
	source, err := w.opener.OpenCapture(iface)
	if err != nil {
		return nil, err
	}
	sink, err := w.opener.OpenInject(iface)
	if err != nil {
		source.Close()
		return nil, err
	}
	return &port{iface: iface, source: source, sink: sink}, nil
}

func (w *Worker) capture(p *port) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.wg.Done()
	defer w.captures.Done()
	defer p.source.Close()

	name := p.iface.Name
	origin := models.Origin{Interface: name, IfIndex: p.iface.Index}
	var eth layers.Ethernet

	for {
		if w.signal.Triggered() {
			logger.Trace(w.log, "Listener exit", "interface", name)
			return
		}

		data, _, err := p.source.ReadPacketData()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if w.signal.Triggered() {
				return
			}
			w.log.Error("Capture failed, stopping listener", "interface", name, "error", err)
			return
		}

		target, ok := checkFrame(&eth, data)
		if !ok {
			logger.Trace(w.log, "Ignoring frame", "interface", name, "len", len(data))
			continue
		}
		w.log.Debug("Received WakeOnLan frame", "interface", name, "src", eth.SrcMAC.String(), "target", target.String())

		frame := append([]byte(nil), data...)
		w.stats.RecordCaptured()
		if !w.enqueue(models.NewRelayMessage(models.LayerLink, origin, target, frame)) {
			return
		}
	}
}

// enqueue blocks while the queue is full. It gives up only on shutdown.
func (w *Worker) enqueue(msg models.RelayMessage) bool {
	select {
	case w.queue <- msg:
		return true
	case <-w.signal.Done():
		return false
	}
}

func (w *Worker) relay() {
	defer w.wg.Done()
	defer func() {
		for _, p := range w.ports {
			p.sink.Close()
		}
	}()

	ticker := time.NewTicker(recvTimeout)
	defer ticker.Stop()

	for {
		if w.signal.Triggered() {
			logger.Trace(w.log, "Relay exit")
			return
		}

		select {
		case msg, ok := <-w.queue:
			if !ok {
				w.log.Warn("All listeners stopped, relay exiting")
				return
			}
			w.forward(msg)
		case <-ticker.C:
		}
	}
}

func (w *Worker) forward(msg models.RelayMessage) {
	ev := models.RelayEvent{
		Timestamp: w.now(),
		Layer:     models.LayerLink,
		Origin:    msg.Origin.String(),
		Target:    msg.Target.String(),
		Length:    len(msg.Payload),
	}

	if !w.cache.ShouldRelay(msg.Target, ev.Timestamp) {
		w.log.Debug("Suppressing WakeOnLan frame inside cooldown", "id", msg.ID, "target", ev.Target)
		ev.Suppressed = true
		w.stats.RecordRelay(ev)
		return
	}

	w.log.Debug("Relaying WakeOnLan frame", "id", msg.ID, "from", ev.Origin, "target", ev.Target)
	for _, p := range w.ports {
		if p.iface.Index == msg.Origin.IfIndex {
			continue
		}
		if err := p.sink.WritePacketData(msg.Payload); err != nil {
			w.log.Debug("Egress write failed", "interface", p.iface.Name, "error", err)
			ev.Failed++
			continue
		}
		ev.Egress++
	}
	w.stats.RecordRelay(ev)
}

// checkFrame reports whether data is a broadcast Wake-on-LAN Ethernet frame
// and returns its target.
func checkFrame(eth *layers.Ethernet, data []byte) (wol.Target, bool) {
	if err := eth.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return wol.Target{}, false
	}
	if eth.EthernetType != EthernetTypeWakeOnLAN || !bytes.Equal(eth.DstMAC, layers.EthernetBroadcast) {
		return wol.Target{}, false
	}
	return wol.Parse(eth.Payload)
}
