// Package api serves pieces, property resolution, action runs and the
// invocation audit log over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GoCodeAlone/workflow-plugin-soap/observability"
	"github.com/GoCodeAlone/workflow-plugin-soap/piece"
	"github.com/GoCodeAlone/workflow-plugin-soap/store"
)

// SessionInvalidator drops the cached state of a configuration session.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, session string) error
}

// Deps groups the components served by the API.
type Deps struct {
	Engine      *piece.Engine
	Sessions    SessionInvalidator
	Invocations store.InvocationStore
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// Config holds configuration for the API layer.
type Config struct {
	// RequestsPerMinute is the per-IP budget on /api/v1 routes. Zero disables
	// limiting.
	RequestsPerMinute int
	Burst             int
}

// Server is the API http.Handler.
type Server struct {
	handler http.Handler
	limiter *rateLimiterStore
}

// NewServer registers all routes.
func NewServer(deps Deps, cfg Config) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	mux := http.NewServeMux()
	limiter := newRateLimiterStore(cfg.RequestsPerMinute, cfg.Burst)
	rl := limiter.rateLimit

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		mux.Handle("GET "+deps.Metrics.MetricsPath(), deps.Metrics.Handler())
	}

	// --- Pieces ---
	pieceH := NewPieceHandler(deps.Engine, deps.Logger)
	mux.Handle("GET /api/v1/pieces", rl(http.HandlerFunc(pieceH.List)))
	mux.Handle("GET /api/v1/pieces/{piece}", rl(http.HandlerFunc(pieceH.Get)))
	mux.Handle("POST /api/v1/pieces/{piece}/actions/{action}/props/{prop}/resolve", rl(http.HandlerFunc(pieceH.Resolve)))
	mux.Handle("POST /api/v1/pieces/{piece}/actions/{action}/run", rl(http.HandlerFunc(pieceH.Run)))

	// --- Sessions ---
	sessionH := NewSessionHandler(deps.Sessions)
	mux.Handle("POST /api/v1/sessions", rl(http.HandlerFunc(sessionH.Create)))
	mux.Handle("DELETE /api/v1/sessions/{id}", rl(http.HandlerFunc(sessionH.Delete)))

	// --- Invocations ---
	if deps.Invocations != nil {
		invH := NewInvocationHandler(deps.Invocations)
		mux.Handle("GET /api/v1/invocations", rl(http.HandlerFunc(invH.List)))
		mux.Handle("GET /api/v1/invocations/{id}", rl(http.HandlerFunc(invH.Get)))
	}

	return &Server{
		handler: otelhttp.NewHandler(countRequests(deps.Metrics, mux), "soap-plugin-api"),
		limiter: limiter,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SetRateLimit changes the per-IP budget of a running server.
func (s *Server) SetRateLimit(requestsPerMinute, burst int) {
	s.limiter.setLimit(requestsPerMinute, burst)
}

// Stop releases the rate limiter's background goroutine. It is safe to call
// multiple times.
func (s *Server) Stop() {
	s.limiter.stop()
}
