package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefaults(t *testing.T) {
	t.Cleanup(func() { Configure("text", LogLevelInfo, nil, os.Stdout) })
}

func TestComponentLevels(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	Configure("text", LogLevelWarn, map[string]LogLevel{ComponentLayer2: LogLevelDebug}, &buf)

	Component(ComponentLayer2).Debug("layer2 debug")
	Component(ComponentLayer4).Debug("layer4 debug")
	Component(ComponentLayer4).Warn("layer4 warn")

	out := buf.String()
	assert.Contains(t, out, "layer2 debug")
	assert.NotContains(t, out, "layer4 debug")
	assert.Contains(t, out, "layer4 warn")
	assert.Contains(t, out, "component=layer2")
}

func TestTraceLevel(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	Configure("text", LogLevelTrace, nil, &buf)

	Trace(Component(ComponentLayer2), "frame seen", "len", 60)

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "frame seen")
}

func TestTraceSuppressedAtDebug(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	Configure("text", LogLevelDebug, nil, &buf)

	Trace(Component(ComponentLayer4), "datagram seen")

	assert.Empty(t, buf.String())
}

func TestJSONFormat(t *testing.T) {
	restoreDefaults(t)
	var buf bytes.Buffer
	Configure("json", LogLevelInfo, nil, &buf)

	Component(ComponentMain).Info("started", "layers", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
	assert.Equal(t, "started", rec["msg"])
	assert.Equal(t, "main", rec["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("TRACE"))
	assert.Equal(t, ParseLevel("warn"), ParseLevel("warning"))
	assert.Equal(t, ParseLevel("info"), ParseLevel("bogus"))
	assert.True(t, ValidLevel("debug"))
	assert.False(t, ValidLevel("bogus"))
}
