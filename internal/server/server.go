// Package server exposes the simulation endpoint and the metrics engine
// over HTTP.
//
// Routes:
//
//	GET     /process      run one simulated request (recorded in metrics)
//	GET     /metrics      cumulative metrics and history
//	DELETE  /metrics      reset metrics
//	GET     /metrics/ws   websocket push of the metrics payload
//	GET     /presets      configured simulation presets
//	GET     /prometheus   Prometheus exposition
//	GET     /health       204 while the metrics engine is running
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/loadlab/internal/config"
	"github.com/wesleyorama2/loadlab/internal/health"
	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

// Server wires the HTTP routes to the metrics engine and the simulator.
type Server struct {
	config    config.ServerConfig
	engine    *metrics.Engine
	simulator *simulation.Simulator
	presets   *config.Presets

	registry *prometheus.Registry
	upgrader websocket.Upgrader
	handler  http.Handler
}

// New creates a server. The engine is started by Serve, not by New.
func New(cfg *config.Config, engine *metrics.Engine, simulator *simulation.Simulator) *Server {
	presets := cfg.Presets
	if presets == nil {
		presets = config.DefaultPresets()
	}

	s := &Server{
		config:    cfg.Server,
		engine:    engine,
		simulator: simulator,
		presets:   presets,
		registry:  prometheus.NewRegistry(),
	}

	s.registry.MustRegister(
		metrics.NewCollector(engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.handler = s.routes()
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Engine returns the metrics engine behind the server.
func (s *Server) Engine() *metrics.Engine {
	return s.engine
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /process", s.recordMetrics(http.HandlerFunc(s.handleProcess)))
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("DELETE /metrics", s.handleReset)
	mux.HandleFunc("GET /metrics/ws", s.handleMetricsWS)
	mux.HandleFunc("GET /presets", s.handlePresets)
	mux.Handle("GET /prometheus", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	health.SetupHTTPMux(mux, health.CheckerFunc(func() error {
		if !s.engine.Running() {
			return errors.New("metrics engine is not running")
		}
		return nil
	}))

	return s.logRequests(s.cors(mux))
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.config.Addr)
	}
	return s.Serve(ctx, listener)
}

// Serve starts the metrics engine and serves HTTP on listener until ctx is
// done, then shuts down gracefully and closes every live subscription.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	s.engine.Start(gctx)

	g.Go(func() error {
		log.Infof("Listening on %s", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		// Websocket connections are hijacked and not tracked by Shutdown;
		// closing the engine ends their subscriptions.
		s.engine.Close()
		return errors.Wrap(err, "graceful shutdown failed")
	})

	return g.Wait()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.config.AllowedOrigin == "" || s.config.AllowedOrigin == "*" {
		return true
	}
	return origin == s.config.AllowedOrigin
}
