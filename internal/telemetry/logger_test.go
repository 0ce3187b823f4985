package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(Options{Output: &bytes.Buffer{}})
	require.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewLogger_debug(t *testing.T) {
	logger := NewLogger(Options{Debug: true, Output: &bytes.Buffer{}})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewLogger_output(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Options{Output: &buf})
	logger.WithField("step", "firewall").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "firewall", entry["step"])
}

func TestNewLogger_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostforge.log")
	var buf bytes.Buffer
	logger := NewLogger(Options{File: path, Output: &buf})
	logger.Info("to both sinks")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to both sinks"))
	assert.Contains(t, buf.String(), "to both sinks")
}

func TestNewLogger_quietConsoleKeepsFileVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostforge.log")
	var console bytes.Buffer
	logger := NewLogger(Options{Quiet: true, File: path, Output: &console})

	logger.Info("step completed")
	logger.Warn("could not export metrics")

	assert.NotContains(t, console.String(), "step completed")
	assert.Contains(t, console.String(), "could not export metrics")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "step completed")
	assert.Contains(t, string(data), "could not export metrics")
}

func TestNewLogger_quietDebugStillQuietOnConsole(t *testing.T) {
	var console bytes.Buffer
	logger := NewLogger(Options{Quiet: true, Debug: true, Output: &console})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.Debug("details")
	logger.Error("broken")
	assert.NotContains(t, console.String(), "details")
	assert.Contains(t, console.String(), "broken")
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
