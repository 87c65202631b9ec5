// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/monitor"
)

// DefaultListen is the bridge address when none is configured.
const DefaultListen = "127.0.0.1:8790"

// ErrNotLoopback is returned for a listen address outside the local host.
var ErrNotLoopback = errors.New("bridge must listen on a loopback address")

// Options configures a Server.
type Options struct {
	Listen    string
	RateLimit float64
	Burst     int
	Logger    *slog.Logger
}

// Server exposes an app.Service over HTTP.
type Server struct {
	service *app.Service
	monitor *monitor.Monitor
	limiter *RateLimiter
	logger  *slog.Logger

	addr   string
	router *http.ServeMux
	server *http.Server
}

// NewServer creates a bridge for svc. mon may be nil, in which case
// /api/status reports only the service's own probe.
func NewServer(svc *app.Service, mon *monitor.Monitor, opts Options) (*Server, error) {
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}
	if err := checkLoopback(opts.Listen); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		service: svc,
		monitor: mon,
		limiter: NewRateLimiter(opts.RateLimit, opts.Burst),
		logger:  opts.Logger,
		addr:    opts.Listen,
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: streamed generations and model pulls run long.
	}
	return s, nil
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotLoopback, addr)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// SetRateLimit applies new limits to all clients.
func (s *Server) SetRateLimit(perSecond float64, burst int) {
	s.limiter.SetLimit(perSecond, burst)
}

// =============================================================================
// ROUTES
// =============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/chats", s.handleListChats)
	s.router.HandleFunc("POST /api/chats", s.handleSaveChat)
	s.router.HandleFunc("PUT /api/chats/{id}", s.handleUpdateChat)
	s.router.HandleFunc("DELETE /api/chats/{id}", s.handleDeleteChat)

	s.router.HandleFunc("POST /api/generate", s.handleGenerate)

	s.router.HandleFunc("GET /api/models", s.handleModels)
	s.router.HandleFunc("GET /api/model", s.handleGetModel)
	s.router.HandleFunc("PUT /api/model", s.handleSetModel)

	s.router.HandleFunc("GET /api/status", s.handleStatus)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(s.limiter),
	)(s.router)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go s.sweepLimiters(stop)

	s.logger.Info("bridge_start", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) sweepLimiters(stop <-chan struct{}) {
	ticker := time.NewTicker(limiterIdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.limiter.Cleanup()
		}
	}
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("bridge_shutdown")
	return s.server.Shutdown(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write_response_failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Code = status
	writeJSON(w, status, body)
}
