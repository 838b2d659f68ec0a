package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]LogLevel{
		"trace":    TRACE,
		"DEBUG":    DEBUG,
		"info":     INFO,
		"warning":  WARN,
		"error":    ERROR,
		"critical": CRITICAL,
		"bogus":    INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerFiltersAndTags(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, INFO)
	sim := log.Component("sim").Component("conn")

	log.Debug("hidden %d", 1)
	log.Info("cycle %d", 2)
	sim.Warn("slow")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[INFO] cycle 2")
	assert.Contains(t, lines[1], "[WARN] sim/conn: slow")

	assert.False(t, sim.Enabled(DEBUG))
	sim.SetMinLevel(TRACE)
	assert.True(t, log.Enabled(DEBUG))
}

func TestFileLogger(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "planner.log")
	log, err := NewFileLogger(path, DEBUG, false)
	require.NoError(t, err)

	log.Debug("x=%.1f", 1.5)
	require.NoError(t, log.Close())
	require.NoError(t, log.Close())
	log.Error("after close")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] x=1.5")
	assert.NotContains(t, string(data), "after close")
}
