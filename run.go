package main

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wolrelay/internal/analysis"
	"wolrelay/internal/config"
	"wolrelay/internal/discovery"
	"wolrelay/internal/layer2"
	"wolrelay/internal/layer4"
	"wolrelay/internal/logger"
	"wolrelay/internal/metrics"
	"wolrelay/internal/models"
	"wolrelay/internal/reporting"
	"wolrelay/internal/shutdown"
	"wolrelay/internal/tui"
)

// relay holds whichever workers started.
type relay struct {
	l2 *layer2.Worker
	l4 *layer4.Worker
}

func (r *relay) stats() []*analysis.RelayStats {
	var out []*analysis.RelayStats
	if r.l2 != nil {
		out = append(out, r.l2.Stats())
	}
	if r.l4 != nil {
		out = append(out, r.l4.Stats())
	}
	return out
}

func (r *relay) wait() {
	if r.l2 != nil {
		r.l2.Wait()
	}
	if r.l4 != nil {
		r.l4.Wait()
	}
}

func (r *relay) summary() string {
	var parts []string
	if r.l2 != nil {
		parts = append(parts, "L2 "+strings.Join(r.l2.Interfaces(), ","))
	}
	if r.l4 != nil {
		var listen []string
		for _, a := range r.l4.ListenAddrs() {
			listen = append(listen, a.String())
		}
		parts = append(parts, "L4 "+strings.Join(listen, ","))
	}
	return strings.Join(parts, " | ")
}

func (r *relay) session(started time.Time) reporting.Session {
	s := reporting.Session{Started: started, Stats: r.stats()}
	if r.l2 != nil {
		s.Interfaces = r.l2.Interfaces()
	}
	if r.l4 != nil {
		s.ListenOn = r.l4.ListenAddrs()
		s.Networks = r.l4.Networks()
	}
	return s
}

// startLayers starts every configured layer. A layer that fails is logged
// and skipped; an error is returned only when nothing started.
func startLayers(cfg *config.Config, snap discovery.Snapshot, sig *shutdown.Signal, l2opts []layer2.Option, l4opts []layer4.Option) (*relay, error) {
	log := logger.Component(logger.ComponentMain)
	r := &relay{}
	var errs []error

	if cfg.Layer2 != nil {
		opts := append([]layer2.Option{
			layer2.WithCooldown(cfg.Cooldown),
			layer2.WithStats(analysis.NewRelayStats(models.LayerLink)),
		}, l2opts...)
		w, err := layer2.Start(*cfg.Layer2, snap, sig, opts...)
		if err != nil {
			log.Error("Layer2 relay not started", "error", err)
			errs = append(errs, fmt.Errorf("layer2: %w", err))
		} else {
			r.l2 = w
			log.Info("Layer2 relay started", "interfaces", w.Interfaces())
		}
	}

	if cfg.Layer4 != nil {
		opts := append([]layer4.Option{
			layer4.WithCooldown(cfg.Cooldown),
			layer4.WithStats(analysis.NewRelayStats(models.LayerTransport)),
		}, l4opts...)
		w, err := layer4.Start(*cfg.Layer4, snap, sig, opts...)
		if err != nil {
			log.Error("Layer4 relay not started", "error", err)
			errs = append(errs, fmt.Errorf("layer4: %w", err))
		} else {
			r.l4 = w
			log.Info("Layer4 relay started", "listen", w.ListenAddrs(), "networks", prefixStrings(w.Networks()))
		}
	}

	if r.l2 == nil && r.l4 == nil {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func run(opts *options) error {
	started := time.Now()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		if !logger.ValidLevel(opts.logLevel) {
			return fmt.Errorf("unknown log level %q", opts.logLevel)
		}
		cfg.Log.Level = logger.LogLevel(opts.logLevel)
	}

	logOut, closeLog, err := logWriter(cfg.Log.File, opts.tui)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Configure(cfg.Log.Format, cfg.Log.Level, cfg.Log.Components, logOut)
	log := logger.Component(logger.ComponentMain)
	logger.Component(logger.ComponentConfig).Info("Configuration loaded",
		"path", opts.configPath,
		"cooldown", cfg.Cooldown,
		"layer2", cfg.Layer2 != nil,
		"layer4", cfg.Layer4 != nil)

	snap, err := discovery.Take(discovery.NetlinkEnumerator{})
	if err != nil {
		return fmt.Errorf("failed to enumerate interfaces: %w", err)
	}
	logger.Component(logger.ComponentDiscovery).Debug("Interface snapshot taken", "count", len(snap))

	sig := shutdown.New()
	r, err := startLayers(cfg, snap, sig, nil, nil)
	if err != nil {
		return err
	}

	var exporter *metrics.Server
	if cfg.Metrics.Listen != "" {
		exporter = metrics.NewServer(cfg.Metrics.Listen, r.stats()...)
		if err := exporter.Start(); err != nil {
			log.Error("Failed to start metrics exporter", "addr", cfg.Metrics.Listen, "error", err)
			exporter = nil
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			log.Info("Received signal, shutting down", "signal", s.String())
			sig.Trigger()
		case <-sig.Done():
		}
	}()

	if opts.tui {
		model := tui.NewRelayModel(sig, r.summary(), r.stats()...)
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			log.Error("Error running TUI", "error", err)
		}
		sig.Trigger()
	}

	workersDone := make(chan struct{})
	go func() {
		r.wait()
		close(workersDone)
	}()
	select {
	case <-sig.Done():
	case <-workersDone:
		log.Warn("All relay workers exited")
		sig.Trigger()
	}
	<-workersDone
	log.Info("Relay workers stopped")

	if exporter != nil {
		exporter.Stop()
	}

	if opts.reportDir != "" {
		path, err := reporting.GenerateSessionReport(opts.reportDir, r.session(started))
		if err != nil {
			log.Error("Failed to write session report", "error", err)
		} else {
			log.Info("Session report written", "path", path)
		}
	}
	return nil
}

// logWriter picks the log destination. The dashboard owns the terminal, so
// with it active logs go to the configured file or nowhere.
func logWriter(path string, tuiActive bool) (io.Writer, func(), error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if tuiActive {
		return io.Discard, func() {}, nil
	}
	return os.Stdout, func() {}, nil
}

func prefixStrings(ps []netip.Prefix) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.String())
	}
	return out
}
