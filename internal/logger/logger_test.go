package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	l, err := New(Options{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(Options{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New(Options{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_JSONEntry(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Service: "carehome", Version: "1.4.0", Output: &buf})
	require.NoError(t, err)

	l.Info("sweep finished", zap.String("job", "care"), zap.Duration("took", 1500*time.Millisecond))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "sweep finished", entry["msg"])
	assert.Equal(t, "carehome", entry["service"])
	assert.Equal(t, "1.4.0", entry["version"])
	assert.Equal(t, "care", entry["job"])
	assert.Equal(t, float64(1500), entry["took"])
	assert.Contains(t, entry, "ts")
	assert.Contains(t, entry, "caller")
}
