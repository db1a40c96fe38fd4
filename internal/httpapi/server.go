// Package httpapi is the proxy HTTP API in front of the backend. Every
// request gets its own backend client carrying the caller's token.
package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aitteam/whm/internal/backend"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Server routes the proxy API.
type Server struct {
	factory  backend.Factory
	logger   *slog.Logger
	origins  []string
	registry *prometheus.Registry
	metrics  *metrics
	mux      *http.ServeMux
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// New creates a Server that talks to the backend through clients made by
// factory.
func New(factory backend.Factory, opts ...Option) *Server {
	s := &Server{
		factory:  factory,
		logger:   slog.New(slog.DiscardHandler),
		origins:  []string{"*"},
		registry: prometheus.NewRegistry(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.registry)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("POST /api/login", "login", s.handleLogin)
	s.handle("POST /api/register", "register", s.handleRegister)
	s.handle("GET /api/projects", "projects", s.handleProjects)
	s.handle("POST /api/projects", "projects_login", s.handleProjectsLogin)
	s.handle("GET /api/user/{id}", "user", s.handleUser)
	s.handle("GET /api/realtime/ws", "realtime", s.handleRealtime)
	s.handle("GET /health", "health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// handle registers h wrapped with request logging and metrics under the
// route label.
func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(route, h))
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.mux)
}

// statusRecorder captures the response code for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes the connection through for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		elapsed := time.Since(start)
		s.metrics.observe(route, r.Method, rec.status, elapsed)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// clientFor returns a fresh backend client carrying the request's bearer
// token, if any.
func (s *Server) clientFor(r *http.Request) backend.Client {
	c := s.factory()
	if token := bearerToken(r); token != "" {
		c.SetToken(token)
	}
	return c
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg any) {
	writeJSON(w, status, map[string]any{"error": msg})
}
