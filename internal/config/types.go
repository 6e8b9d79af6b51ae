package config

import (
	"net/netip"
	"time"

	"wolrelay/internal/logger"
)

// Config is the validated configuration consumed by the relay workers.
type Config struct {
	Cooldown time.Duration `yaml:"cooldown"`
	Log      LogConfig     `yaml:"log"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Layer2   *Layer2Config `yaml:"layer2,omitempty"`
	Layer4   *Layer4Config `yaml:"layer4,omitempty"`
}

type LogConfig struct {
	Level      logger.LogLevel            `yaml:"level"`
	Format     string                     `yaml:"format"`
	File       string                     `yaml:"file"`
	Components map[string]logger.LogLevel `yaml:"components"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Layer2Config enables the link-layer worker on the named interfaces.
type Layer2Config struct {
	Interfaces []string `yaml:"interfaces"`
}

// Layer4Config enables the transport-layer worker.
type Layer4Config struct {
	ListenOn []netip.AddrPort `yaml:"listen_on"`
	RelayTo  []netip.Prefix   `yaml:"relay_to"`
}

// DefaultLayer4 is used when the layer4 key is present with no value.
func DefaultLayer4() *Layer4Config {
	return &Layer4Config{
		ListenOn: []netip.AddrPort{netip.MustParseAddrPort("0.0.0.0:9")},
		RelayTo:  []netip.Prefix{netip.MustParsePrefix("0.0.0.0/0")},
	}
}
