package config

import (
	"fmt"
	"net/netip"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML distinguishes an absent layer key (layer disabled) from a
// key with a null value (layer enabled with defaults).
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	if err := value.Decode((*plain)(c)); err != nil {
		return err
	}

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Tag != "!!null" {
			continue
		}
		switch key.Value {
		case "layer2":
			c.Layer2 = &Layer2Config{}
		case "layer4":
			c.Layer4 = DefaultLayer4()
		}
	}
	return nil
}

func (l *Layer4Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ListenOn []string `yaml:"listen_on"`
		RelayTo  []string `yaml:"relay_to"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	l.ListenOn = nil
	for i, s := range raw.ListenOn {
		ap, err := netip.ParseAddrPort(s)
		if err != nil {
			return fmt.Errorf("listen_on[%d]: %w", i, err)
		}
		l.ListenOn = append(l.ListenOn, ap)
	}

	l.RelayTo = nil
	for i, s := range raw.RelayTo {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return fmt.Errorf("relay_to[%d]: %w", i, err)
		}
		l.RelayTo = append(l.RelayTo, p)
	}
	return nil
}

func (l Layer4Config) MarshalYAML() (any, error) {
	var raw struct {
		ListenOn []string `yaml:"listen_on"`
		RelayTo  []string `yaml:"relay_to"`
	}
	for _, ap := range l.ListenOn {
		raw.ListenOn = append(raw.ListenOn, ap.String())
	}
	for _, p := range l.RelayTo {
		raw.RelayTo = append(raw.RelayTo, p.String())
	}
	return raw, nil
}
