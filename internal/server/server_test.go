package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/loadlab/internal/config"
	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	engine := metrics.NewEngineWithConfig(cfg.Metrics.EngineConfig())
	srv := New(cfg, engine, simulation.New(cfg.Simulation.Limits()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		engine.Close()
		ts.Close()
	})
	return srv, ts
}

func doRequest(t *testing.T, method, url string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestProcess_Success(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/process?delay=5&cpuLoad=1000&memoryStress=1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.Equal(t, int64(5), gjson.Get(body, "delay").Int())
	assert.Equal(t, int64(1000), gjson.Get(body, "cpuLoad").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "memoryStress").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "jitter").Int())
	assert.GreaterOrEqual(t, gjson.Get(body, "duration").Int(), int64(5))

	snapshot := srv.Engine().Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalRequests)
	assert.Equal(t, int64(0), snapshot.TotalErrors)
	assert.GreaterOrEqual(t, snapshot.MinLatency, 5.0)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantError  string
	}{
		{"simulated failure", "delay=-1", http.StatusInternalServerError, "Internal Server Error simulated"},
		{"failure preset", "preset=service-fail", http.StatusInternalServerError, "Internal Server Error simulated"},
		{"unknown preset", "preset=nope", http.StatusBadRequest, "unknown preset: nope"},
		{"not an integer", "delay=abc", http.StatusBadRequest, "not an integer"},
		{"over maximum", "delay=9999999", http.StatusBadRequest, "exceeds maximum"},
		{"negative cpu", "cpuLoad=-5", http.StatusBadRequest, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, ts := newTestServer(t)

			resp, body := doRequest(t, http.MethodGet, ts.URL+"/process?"+tt.query)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, gjson.Get(body, "error").String(), tt.wantError)

			// failures are completed requests and are recorded as such
			snapshot := srv.Engine().Snapshot()
			assert.Equal(t, int64(1), snapshot.TotalRequests)
			assert.Equal(t, int64(1), snapshot.TotalErrors)
			assert.Equal(t, 1.0, snapshot.ErrorRate)
		})
	}
}

func TestProcess_PresetWithOverride(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/process?preset=Network%20Jitter&delay=0&jitter=0")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(0), gjson.Get(body, "delay").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "jitter").Int())
}

func TestMetrics_Get(t *testing.T) {
	srv, ts := newTestServer(t)

	srv.Engine().Record(100, true)
	srv.Engine().Record(300, false)
	srv.Engine().Flush()

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	assert.Equal(t, int64(2), gjson.Get(body, "totalRequests").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "totalErrors").Int())
	assert.Equal(t, 400.0, gjson.Get(body, "totalLatency").Float())
	assert.Equal(t, 200.0, gjson.Get(body, "avgLatency").Float())
	assert.Equal(t, 100.0, gjson.Get(body, "minLatency").Float())
	assert.Equal(t, 300.0, gjson.Get(body, "maxLatency").Float())
	assert.Equal(t, 0.5, gjson.Get(body, "errorRate").Float())

	history := gjson.Get(body, "history")
	require.True(t, history.IsArray())
	require.Len(t, history.Array(), 1)
	assert.True(t, gjson.Get(body, "history.0.timestamp").Exists())
	assert.Equal(t, 200.0, gjson.Get(body, "history.0.avgLatency").Float())
	assert.Equal(t, 0.5, gjson.Get(body, "history.0.errorRate").Float())
	assert.True(t, gjson.Get(body, "history.0.p95Latency").Exists())

	// reading metrics is not itself recorded
	assert.Equal(t, int64(2), srv.Engine().Snapshot().TotalRequests)
}

func TestMetrics_EmptyHistoryIsArray(t *testing.T) {
	_, ts := newTestServer(t)

	_, body := doRequest(t, http.MethodGet, ts.URL+"/metrics")
	assert.Equal(t, "[]", gjson.Get(body, "history").Raw)
	assert.Equal(t, 0.0, gjson.Get(body, "avgLatency").Float())
}

func TestMetrics_Reset(t *testing.T) {
	srv, ts := newTestServer(t)

	srv.Engine().Record(100, true)
	srv.Engine().Flush()

	resp, body := doRequest(t, http.MethodDelete, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)

	snapshot := srv.Engine().Snapshot()
	assert.Equal(t, int64(0), snapshot.TotalRequests)
	assert.Empty(t, snapshot.History)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/metrics")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doRequest(t, http.MethodOptions, ts.URL+"/metrics")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/metrics")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/metrics")
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "fixed-id")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "fixed-id", resp.Header.Get(RequestIDHeader))
}

func TestPresets(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/presets")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	names := gjson.Get(body, "#.name").Array()
	require.Len(t, names, 6)
	assert.Equal(t, "Optimal", names[0].String())
	assert.Equal(t, int64(1500), gjson.Get(body, `#(name=="DB Latency").delay`).Int())
	assert.Equal(t, int64(500), gjson.Get(body, `#(name=="Network Jitter").jitter`).Int())
}

func TestPrometheus(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.Engine().Record(10, true)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/prometheus")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "loadlab_requests_total 1")
	assert.Contains(t, body, `loadlab_request_latency_ms{stat="max"} 10`)
	assert.Contains(t, body, "go_goroutines")
}

func TestHealth(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "not running")

	srv.Engine().Start(context.Background())
	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/health")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func dialMetrics(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/metrics/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readPayload(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestMetricsWS(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.Engine().Record(50, true)

	conn := dialMetrics(t, ts)

	// immediate payload on connect
	first := readPayload(t, conn)
	assert.Equal(t, int64(1), gjson.Get(first, "totalRequests").Int())
	assert.Equal(t, "[]", gjson.Get(first, "history").Raw)

	require.Eventually(t, func() bool {
		return srv.Engine().Subscribers() == 1
	}, time.Second, 5*time.Millisecond)

	// one payload per window closure
	srv.Engine().Flush()
	second := readPayload(t, conn)
	assert.Equal(t, int64(1), gjson.Get(second, "history.#").Int())
	assert.Equal(t, 50.0, gjson.Get(second, "history.0.p95Latency").Float())

	// disconnect unsubscribes
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return srv.Engine().Subscribers() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMetricsWS_EngineCloseEndsStream(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dialMetrics(t, ts)
	readPayload(t, conn)

	srv.Engine().Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestServe_GracefulShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.FlushInterval = 20 * time.Millisecond
	engine := metrics.NewEngineWithConfig(cfg.Metrics.EngineConfig())
	srv := New(cfg, engine, simulation.New(cfg.Simulation.Limits()))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, listener) }()

	base := "http://" + listener.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 10*time.Millisecond)

	resp, body := doRequest(t, http.MethodGet, base+"/process")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gjson.Get(body, "success").Bool())

	require.Eventually(t, func() bool {
		return len(engine.Snapshot().History) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, engine.Running())
}
