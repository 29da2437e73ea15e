package watch

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestStreamURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:3001", "ws://localhost:3001/metrics/ws", false},
		{"https://example.com/", "wss://example.com/metrics/ws", false},
		{"ws://localhost:3001/metrics/ws", "ws://localhost:3001/metrics/ws", false},
		{"wss://example.com/custom", "wss://example.com/custom", false},
		{"ftp://example.com", "", true},
		{"http://", "", true},
		{"localhost:3001", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := StreamURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StreamURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StreamURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWatch_ReceivesSnapshots(t *testing.T) {
	engine, ts := newTestServer(t)
	engine.Record(10, true)
	engine.Record(30, false)

	client, err := NewClient(ts.URL)
	require.NoError(t, err)

	var got []metrics.Snapshot
	err = client.Watch(context.Background(), func(s metrics.Snapshot) error {
		got = append(got, s)
		if len(got) == 1 {
			engine.Flush()
			return nil
		}
		return ErrStop
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(2), got[0].TotalRequests)
	assert.Equal(t, 0.5, got[0].ErrorRate)
	assert.Empty(t, got[0].History)

	require.Len(t, got[1].History, 1)
	assert.Equal(t, 20.0, got[1].History[0].AvgLatency)
}

func TestWatch_HandlerErrorIsReturned(t *testing.T) {
	_, ts := newTestServer(t)

	client, err := NewClient(ts.URL)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = client.Watch(context.Background(), func(metrics.Snapshot) error { return boom })
	assert.True(t, errors.Is(err, boom))
}

func TestWatch_ServerCloseEndsWatch(t *testing.T) {
	engine, ts := newTestServer(t)

	client, err := NewClient(ts.URL)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- client.Watch(context.Background(), func(metrics.Snapshot) error {
			engine.Close()
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after the engine closed")
	}
}

func TestWatch_ContextCancel(t *testing.T) {
	_, ts := newTestServer(t)

	client, err := NewClient(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.Watch(ctx, func(metrics.Snapshot) error {
			cancel()
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_DialFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	client, err := NewClient(url)
	require.NoError(t, err)

	err = client.Watch(context.Background(), func(metrics.Snapshot) error { return nil })
	assert.Error(t, err)
}
