package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/sitechat/internal/rag/kb"
)

// adminServer exposes health, readiness, knowledge base statistics and
// Prometheus metrics. It starts before the knowledge base is built so
// orchestrators can tell a slow crawl from a dead process.
type adminServer struct {
	addr     string
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	stats atomic.Pointer[kb.Stats]

	server   *http.Server
	listener net.Listener
}

func newAdminServer(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *adminServer {
	return &adminServer{addr: addr, gatherer: gatherer, logger: logger.With("component", "admin")}
}

func (s *adminServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start listens and serves in the background.
func (s *adminServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", "error", err)
		}
	}()
	s.logger.Info("starting admin server", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *adminServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// SetReady marks the knowledge base as built.
func (s *adminServer) SetReady(stats kb.Stats) {
	if s == nil {
		return
	}
	s.stats.Store(&stats)
}

func (s *adminServer) Shutdown(ctx context.Context) {
	if s == nil || s.server == nil {
		return
	}
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("admin server shutdown error", "error", err)
	}
}

func (s *adminServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *adminServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.stats.Load() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "building"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *adminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.Load()
	if stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "building"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}
