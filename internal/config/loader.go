package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"wolrelay/internal/cooldown"
	"wolrelay/internal/logger"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Encode writes cfg as YAML. The output loads back to the same
// configuration.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func (c *Config) applyDefaults() {
	if c.Cooldown == 0 {
		c.Cooldown = cooldown.DefaultWindow
	}
	if c.Log.Level == "" {
		c.Log.Level = logger.LogLevelInfo
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	if c.Layer2 == nil && c.Layer4 == nil {
		return errors.New("at least one of layer2 or layer4 must be configured")
	}

	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must be positive, got %s", c.Cooldown)
	}

	if !logger.ValidLevel(string(c.Log.Level)) {
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	for name, lvl := range c.Log.Components {
		if !logger.ValidLevel(string(lvl)) {
			return fmt.Errorf("log.components.%s: unknown level %q", name, lvl)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}

	if c.Layer2 != nil {
		for i, name := range c.Layer2.Interfaces {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("layer2.interfaces[%d]: empty interface name", i)
			}
		}
	}

	if c.Layer4 != nil {
		for i, ap := range c.Layer4.ListenOn {
			if !ap.Addr().Is4() {
				return fmt.Errorf("layer4.listen_on[%d]: %s is not an IPv4 socket address", i, ap)
			}
		}
		for i, p := range c.Layer4.RelayTo {
			if !p.Addr().Is4() {
				return fmt.Errorf("layer4.relay_to[%d]: %s is not an IPv4 network", i, p)
			}
		}
	}

	return nil
}
