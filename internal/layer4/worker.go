// Package layer4 relays Wake-on-LAN UDP datagrams to the broadcast address
// of each configured private network.
package layer4

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"wolrelay/internal/analysis"
	"wolrelay/internal/config"
	"wolrelay/internal/cooldown"
	"wolrelay/internal/discovery"
	"wolrelay/internal/logger"
	"wolrelay/internal/models"
	"wolrelay/internal/shutdown"
	"wolrelay/internal/wol"
)

const (
	queueSize      = 8
	readBufferSize = 1500
	readTimeout    = 100 * time.Millisecond
	recvTimeout    = 50 * time.Millisecond
)

// Worker is a running transport-layer relay.
type Worker struct {
	log          *slog.Logger
	signal       *shutdown.Signal
	sockets      SocketFactory
	stats        *analysis.RelayStats
	cache        *cooldown.Cache
	now          func() time.Time
	queue        chan models.RelayMessage
	listenOn     []netip.AddrPort
	networks     []netip.Prefix
	destinations []netip.AddrPort
	wg           sync.WaitGroup
	listeners    sync.WaitGroup
}

type Option func(*Worker)

// WithSocketFactory replaces the real UDP socket factory.
func WithSocketFactory(f SocketFactory) Option {
	return func(w *Worker) { w.sockets = f }
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

// Start resolves the destination networks and starts one listener per
// listen address plus a single relay goroutine. Errors from network
// resolution are returned before anything is started.
func Start(cfg config.Layer4Config, snap discovery.Snapshot, signal *shutdown.Signal, opts ...Option) (*Worker, error) {
	w := &Worker{
		log:     logger.Component(logger.ComponentLayer4),
		signal:  signal,
		sockets: UDPSocketFactory{},
		cache:   cooldown.New(cooldown.DefaultWindow),
		now:     time.Now,
		queue:   make(chan models.RelayMessage, queueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.stats == nil {
		w.stats = analysis.NewRelayStats(models.LayerTransport)
	}

	w.listenOn = collapseListenAddrs(cfg.ListenOn)
	if len(w.listenOn) == 0 {
		return nil, fmt.Errorf("%w: no layer4 listen address", models.ErrConfiguration)
	}

	networks, err := discovery.SanitizeNetworks(cfg.RelayTo, snap, w.log)
	if err != nil {
		return nil, err
	}
	w.networks = networks
	for _, n := range networks {
		w.destinations = append(w.destinations, netip.AddrPortFrom(discovery.Broadcast(n), wol.DefaultPort))
	}

	for _, addr := range w.listenOn {
		w.listeners.Add(1)
		w.wg.Add(1)
		go w.listen(addr)
	}

	go func() {
		w.listeners.Wait()
		close(w.queue)
	}()

	w.log.Debug("Relaying to networks", "count", len(w.networks))
	for _, n := range w.networks {
		w.log.Debug("Relay network", "network", n.String(), "broadcast", discovery.Broadcast(n).String())
	}

	w.wg.Add(1)
	go w.relay()

	return w, nil
}

// Wait blocks until every listener and the relay goroutine have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// ListenAddrs returns the addresses listeners were started on.
func (w *Worker) ListenAddrs() []netip.AddrPort {
	return append([]netip.AddrPort(nil), w.listenOn...)
}

// Networks returns the sanitized destination networks.
func (w *Worker) Networks() []netip.Prefix {
	return append([]netip.Prefix(nil), w.networks...)
}

// Stats returns the worker's statistics.
func (w *Worker) Stats() *analysis.RelayStats {
	return w.stats
}

// collapseListenAddrs reduces the list to a single wildcard listener when
// one is configured, since it would conflict with every other bind.
func collapseListenAddrs(addrs []netip.AddrPort) []netip.AddrPort {
	for _, a := range addrs {
		if a.Addr() == netip.IPv4Unspecified() {
			return []netip.AddrPort{a}
		}
	}
	return addrs
}

func (w *Worker) listen(addr netip.AddrPort) {
	defer w.wg.Done()
	defer w.listeners.Done()

	conn, err := w.sockets.Listen(addr)
	if err != nil {
		w.log.Error("Unable to bind to socket", "addr", addr.String(), "error", err)
		return
	}
	defer conn.Close()
	w.log.Debug("Listening on socket", "addr", addr.String())

	buf := make([]byte, readBufferSize)
	for {
		if w.signal.Triggered() {
			logger.Trace(w.log, "Listener exit", "addr", addr.String())
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			w.log.Error("Unable to set read deadline, stopping listener", "addr", addr.String(), "error", err)
			return
		}
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) || w.signal.Triggered() {
				return
			}
			w.log.Error("Receive failed, stopping listener", "addr", addr.String(), "error", err)
			return
		}

		logger.Trace(w.log, "Received datagram", "from", from.String(), "len", n)
		target, ok := wol.Parse(buf[:n])
		if !ok {
			continue
		}
		w.log.Debug("Received WakeOnLan datagram", "from", from.String(), "target", target.String())

		payload := append([]byte(nil), buf[:n]...)
		w.stats.RecordCaptured()
		msg := models.NewRelayMessage(models.LayerTransport, models.Origin{Addr: from.String()}, target, payload)
		if !w.enqueue(msg) {
			return
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

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

	conn, err := w.sockets.Broadcaster()
	if err != nil {
		w.log.Error("Unable to open relay socket", "error", err)
		return
	}
	defer conn.Close()

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
			w.forward(conn, msg)
		case <-ticker.C:
		}
	}
}

func (w *Worker) forward(conn PacketConn, msg models.RelayMessage) {
	ev := models.RelayEvent{
		Timestamp: w.now(),
		Layer:     models.LayerTransport,
		Origin:    msg.Origin.String(),
		Target:    msg.Target.String(),
		Length:    len(msg.Payload),
	}

	if !w.cache.ShouldRelay(msg.Target, ev.Timestamp) {
		w.log.Debug("Suppressing WakeOnLan datagram inside cooldown", "id", msg.ID, "target", ev.Target)
		ev.Suppressed = true
		w.stats.RecordRelay(ev)
		return
	}

	w.log.Debug("Relaying WakeOnLan datagram to networks", "id", msg.ID, "from", ev.Origin)
	for _, dst := range w.destinations {
		logger.Trace(w.log, "Relaying datagram", "from", ev.Origin, "to", dst.String())
		if _, err := conn.WriteToUDPAddrPort(msg.Payload, dst); err != nil {
			w.log.Debug("Relay send failed", "to", dst.String(), "error", err)
			ev.Failed++
			continue
		}
		ev.Egress++
	}
	w.stats.RecordRelay(ev)
}
