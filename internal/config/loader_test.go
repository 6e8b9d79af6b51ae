package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolrelay/internal/cooldown"
	"wolrelay/internal/logger"
)

func TestParseFullConfig(t *testing.T) {
	doc := `
cooldown: 3s
log:
  level: debug
  format: json
  components:
    layer2: trace
metrics:
  listen: ":9108"
layer2:
  interfaces: [eth0, eth1]
layer4:
  listen_on: ["192.168.1.2:9", "10.0.0.2:7"]
  relay_to: ["10.1.0.0/24", "0.0.0.0/0"]
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Cooldown)
	assert.Equal(t, logger.LogLevelDebug, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, logger.LogLevelTrace, cfg.Log.Components["layer2"])
	assert.Equal(t, ":9108", cfg.Metrics.Listen)
	require.NotNil(t, cfg.Layer2)
	assert.Equal(t, []string{"eth0", "eth1"}, cfg.Layer2.Interfaces)
	require.NotNil(t, cfg.Layer4)
	require.Len(t, cfg.Layer4.ListenOn, 2)
	assert.Equal(t, "192.168.1.2:9", cfg.Layer4.ListenOn[0].String())
	require.Len(t, cfg.Layer4.RelayTo, 2)
	assert.Equal(t, "0.0.0.0/0", cfg.Layer4.RelayTo[1].String())
}

func TestAbsentLayerDisabled(t *testing.T) {
	cfg, err := Parse([]byte("layer2:\n  interfaces: [eth0]\n"))
	require.NoError(t, err)

	assert.NotNil(t, cfg.Layer2)
	assert.Nil(t, cfg.Layer4)
	assert.Equal(t, cooldown.DefaultWindow, cfg.Cooldown)
	assert.Equal(t, logger.LogLevelInfo, cfg.Log.Level)
}

func TestNullLayerEnabledWithDefaults(t *testing.T) {
	cfg, err := Parse([]byte("layer2:\nlayer4:\n"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Layer2)
	assert.Empty(t, cfg.Layer2.Interfaces)
	require.NotNil(t, cfg.Layer4)
	assert.Equal(t, "0.0.0.0:9", cfg.Layer4.ListenOn[0].String())
	assert.Equal(t, "0.0.0.0/0", cfg.Layer4.RelayTo[0].String())
}

func TestNoLayersRejected(t *testing.T) {
	_, err := Parse([]byte("cooldown: 1s\n"))
	assert.Error(t, err)
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad listen":  "layer4:\n  listen_on: [\"nonsense\"]\n  relay_to: [\"0.0.0.0/0\"]\n",
		"ipv6 listen": "layer4:\n  listen_on: [\"[::]:9\"]\n  relay_to: [\"0.0.0.0/0\"]\n",
		"bad prefix":  "layer4:\n  listen_on: [\"0.0.0.0:9\"]\n  relay_to: [\"10.0.0.0/33\"]\n",
		"ipv6 prefix": "layer4:\n  listen_on: [\"0.0.0.0:9\"]\n  relay_to: [\"fd00::/64\"]\n",
		"bad level":   "log:\n  level: loud\nlayer2:\n  interfaces: [eth0]\n",
		"bad format":  "log:\n  format: xml\nlayer2:\n  interfaces: [eth0]\n",
		"negative":    "cooldown: -1s\nlayer2:\n  interfaces: [eth0]\n",
		"empty iface": "layer2:\n  interfaces: [\"\"]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadAndEncodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wolrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layer4:\n  listen_on: [\"0.0.0.0:9\"]\n  relay_to: [\"10.1.0.0/24\"]\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))
	assert.NotContains(t, buf.String(), "layer2")
	assert.Contains(t, buf.String(), "cooldown: 5s")

	again, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, again.Layer2)
	assert.Equal(t, cfg.Layer4.RelayTo, again.Layer4.RelayTo)
	assert.Equal(t, cfg.Layer4.ListenOn, again.Layer4.ListenOn)
	assert.Equal(t, cfg.Cooldown, again.Cooldown)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
