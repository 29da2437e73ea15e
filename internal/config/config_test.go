package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, ":3001", c.Server.Addr)
	assert.Equal(t, 10*time.Second, c.Server.ReadHeaderTimeout)
	assert.Equal(t, 5*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "*", c.Server.AllowedOrigin)

	assert.Equal(t, 2*time.Second, c.Metrics.FlushInterval)
	assert.Equal(t, 30, c.Metrics.HistoryCapacity)
	assert.Equal(t, 3, c.Metrics.SketchSignificantFigures)
	assert.Equal(t, 10*time.Minute, c.Metrics.SketchMaxLatency)
	assert.Equal(t, 4, c.Metrics.SubscriberBuffer)

	assert.Equal(t, 60*time.Second, c.Simulation.MaxDelay)
	assert.Equal(t, 30*time.Second, c.Simulation.MaxJitter)
	assert.Equal(t, int64(1_000_000_000), c.Simulation.MaxCPULoad)
	assert.Equal(t, 1024, c.Simulation.MaxMemoryMB)

	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "text", c.Logging.Format)

	require.NotNil(t, c.Presets)
	assert.Equal(t, 6, c.Presets.Len())
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv("HOME", dir)

	c, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, ":3001", c.Server.Addr)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadlab.yaml")

	content := `
server:
  addr: ":8080"
  allowedOrigin: "http://localhost:5173"
metrics:
  flushInterval: 500ms
  historyCapacity: 10
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "http://localhost:5173", c.Server.AllowedOrigin)
	assert.Equal(t, 500*time.Millisecond, c.Metrics.FlushInterval)
	assert.Equal(t, 10, c.Metrics.HistoryCapacity)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "json", c.Logging.Format)

	// untouched keys keep their defaults
	assert.Equal(t, 3, c.Metrics.SketchSignificantFigures)
	assert.Equal(t, 5*time.Second, c.Server.ShutdownTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":8080\"\n"), 0644))

	t.Setenv("LOADLAB_SERVER_ADDR", ":9090")
	t.Setenv("LOADLAB_METRICS_HISTORYCAPACITY", "12")

	c, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, 12, c.Metrics.HistoryCapacity)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadlab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  historyCapacity: 0\n"), 0644))

	_, err := Load(NewViper(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.historyCapacity")
}

func TestLoad_PresetsFile(t *testing.T) {
	dir := t.TempDir()
	presetsPath := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(presetsPath, []byte("presets:\n  - name: Slow\n    delay: 250\n"), 0644))

	configPath := filepath.Join(dir, "loadlab.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("presetsFile: "+presetsPath+"\n"), 0644))

	c, err := Load(NewViper(), configPath)
	require.NoError(t, err)
	require.Equal(t, 1, c.Presets.Len())

	p, ok := c.Presets.Lookup("slow")
	require.True(t, ok)
	assert.Equal(t, 250, p.Delay)
}

func TestConversions(t *testing.T) {
	c := Default()

	engine := c.Metrics.EngineConfig()
	assert.Equal(t, c.Metrics.FlushInterval, engine.FlushInterval)
	assert.Equal(t, c.Metrics.HistoryCapacity, engine.HistoryCapacity)
	assert.Equal(t, c.Metrics.SubscriberBuffer, engine.SubscriberBuffer)

	limits := c.Simulation.Limits()
	assert.Equal(t, c.Simulation.MaxDelay, limits.MaxDelay)
	assert.Equal(t, c.Simulation.MaxMemoryMB, limits.MaxMemoryMB)
}
