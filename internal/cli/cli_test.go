package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/loadlab/internal/config"
	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/server"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

func newTestServer(t *testing.T) (*metrics.Engine, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	engine := metrics.NewEngineWithConfig(cfg.Metrics.EngineConfig())
	srv := server.New(cfg, engine, simulation.New(cfg.Simulation.Limits()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		engine.Close()
		ts.Close()
	})
	return engine, ts
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func TestRoot_Help(t *testing.T) {
	out, err := run(t, context.Background())
	require.NoError(t, err)
	for _, sub := range []string{"serve", "hammer", "watch", "report", "presets"} {
		assert.Contains(t, out, sub)
	}
}

func TestRoot_Version(t *testing.T) {
	out, err := run(t, context.Background(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestRoot_InvalidConfigFile(t *testing.T) {
	_, err := run(t, context.Background(), "--config", filepath.Join(t.TempDir(), "missing.yaml"), "presets")
	assert.Error(t, err)
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	_, err := run(t, context.Background(), "--log-level", "loud", "presets")
	assert.Error(t, err)
}

func TestPresets_Text(t *testing.T) {
	out, err := run(t, context.Background(), "presets")
	require.NoError(t, err)

	for _, name := range config.DefaultPresets().Names() {
		assert.Contains(t, out, name)
	}
}

func TestPresets_JSON(t *testing.T) {
	out, err := run(t, context.Background(), "presets", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, int64(6), gjson.Get(out, "#").Int())
	assert.Equal(t, "Service Fail", gjson.Get(out, `#(delay==-1).name`).String())
}

func TestPresets_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	presetsPath := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(presetsPath, []byte("presets:\n  - name: Slow\n    delay: 250\n"), 0644))

	cfgPath := filepath.Join(dir, "loadlab.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("presetsFile: "+presetsPath+"\n"), 0644))

	out, err := run(t, context.Background(), "--config", cfgPath, "presets", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Slow")
	assert.Contains(t, out, "delay: 250")
	assert.NotContains(t, out, "Optimal")
}

func TestPresets_BadOutputFormat(t *testing.T) {
	_, err := run(t, context.Background(), "presets", "-o", "xml")
	assert.Error(t, err)
}

func TestHammer_JSON(t *testing.T) {
	engine, ts := newTestServer(t)

	out, err := run(t, context.Background(), "hammer",
		"--url", ts.URL,
		"--delay", "1",
		"--vus", "2",
		"--duration", "200ms",
		"-o", "json",
	)
	require.NoError(t, err)

	total := gjson.Get(out, "totalRequests").Int()
	assert.Greater(t, total, int64(0))
	assert.Equal(t, int64(0), gjson.Get(out, "totalErrors").Int())
	assert.Equal(t, int64(2), gjson.Get(out, "vus").Int())
	assert.True(t, gjson.Get(out, "p95").Exists())
	assert.GreaterOrEqual(t, engine.Snapshot().TotalRequests, total)
}

func TestHammer_TextSummary(t *testing.T) {
	_, ts := newTestServer(t)

	out, err := run(t, context.Background(), "hammer",
		"--url", ts.URL,
		"--preset", "Service Fail",
		"--duration", "100ms",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Load Run Summary")
	assert.Contains(t, out, "Error Rate:     100.00%")
}

func TestHammer_InvalidFlags(t *testing.T) {
	_, err := run(t, context.Background(), "hammer", "--url", "ftp://x", "--duration", "1s")
	assert.Error(t, err)

	_, err = run(t, context.Background(), "hammer", "--vus", "-1", "--duration", "1s")
	assert.Error(t, err)
}

func TestWatch_Count(t *testing.T) {
	engine, ts := newTestServer(t)
	engine.Record(12, true)

	out, err := run(t, context.Background(), "watch", "--url", ts.URL, "--count", "1", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, int64(1), gjson.Get(out, "totalRequests").Int())
	assert.Equal(t, 12.0, gjson.Get(out, "avgLatency").Float())
}

func TestWatch_Text(t *testing.T) {
	engine, ts := newTestServer(t)
	engine.Record(12, false)

	out, err := run(t, context.Background(), "watch", "--url", ts.URL, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "reqs 1")
	assert.Contains(t, out, "errs 1 (100.00%)")
}

func TestReport_FromURL(t *testing.T) {
	engine, ts := newTestServer(t)
	engine.Record(10, true)
	engine.Record(20, true)
	engine.Flush()

	path := filepath.Join(t.TempDir(), "report.html")
	out, err := run(t, context.Background(), "report", "--url", ts.URL+"/metrics", "--out", path, "--title", "CI run")
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>CI run</title>")
	assert.Contains(t, html, `id="avg-latency">15.0ms<`)
	assert.Contains(t, html, `"avgLatency":15`)
}

func TestReport_FromFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"totalRequests":42,"history":[]}`), 0644))

	path := filepath.Join(dir, "report.html")
	_, err := run(t, context.Background(), "report", "--in", in, "--out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `id="total-requests">42<`))
}

func TestReport_RequiresSource(t *testing.T) {
	_, err := run(t, context.Background(), "report", "--out", filepath.Join(t.TempDir(), "r.html"))
	assert.Error(t, err)

	_, err = run(t, context.Background(), "report", "--url", "http://x/metrics", "--in", "snapshot.json")
	assert.Error(t, err)
}

func TestServe_StopsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := run(t, ctx, "serve", "--addr", "127.0.0.1:0")
	assert.NoError(t, err)
}

func TestServe_InvalidFlushInterval(t *testing.T) {
	_, err := run(t, context.Background(), "serve", "--addr", "127.0.0.1:0", "--flush-interval", "0s")
	assert.Error(t, err)
}
