package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"student_mentor/backend/go/pkg/circuitbreaker"
	"student_mentor/backend/go/pkg/httpmiddleware"
	"student_mentor/backend/go/pkg/logger"
	"student_mentor/backend/go/pkg/ratelimiter"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server wraps http.Server with an optional global middleware chain.
type Server struct {
	httpServer  *http.Server
	middlewares []Middleware
	log         *logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddress sets the listen address.
func WithAddress(addr string) ServerOption {
	return func(s *Server) { s.httpServer.Addr = addr }
}

// WithRateLimiter rejects requests with 429 once limiter is exhausted.
func WithRateLimiter(limiter ratelimiter.RateLimiter) ServerOption {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, httpmiddleware.RateLimit(limiter))
	}
}

// WithCircuitBreaker answers 503 while breaker is open.
func WithCircuitBreaker(breaker circuitbreaker.CircuitBreaker) ServerOption {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, httpmiddleware.CircuitBreak(breaker))
	}
}

// WithMiddleware appends arbitrary middleware; earlier ones run first.
func WithMiddleware(m ...Middleware) ServerOption {
	return func(s *Server) { s.middlewares = append(s.middlewares, m...) }
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer serves handler behind the configured middleware. Streaming
// responses are long lived, so only the header read has a timeout.
func NewServer(handler http.Handler, opts ...ServerOption) *Server {
	srv := &Server{
		httpServer: &http.Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.New("http-server", "", ""),
	}
	for _, opt := range opts {
		opt(srv)
	}

	h := handler
	for i := len(srv.middlewares) - 1; i >= 0; i-- {
		h = srv.middlewares[i](h)
	}
	srv.httpServer.Handler = h
	return srv
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	if s.httpServer.Addr == "" {
		return fmt.Errorf("server address is not set")
	}
	s.log.WithPayload(map[string]interface{}{"addr": s.httpServer.Addr}).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
