package httpmiddleware

import (
	"errors"
	"fmt"
	"net/http"

	"student_mentor/backend/go/pkg/circuitbreaker"
	"student_mentor/backend/go/pkg/ratelimiter"
)

// RateLimit rejects requests with 429 once limiter runs dry.
func RateLimit(limiter ratelimiter.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter captures the status code. It forwards Flush so streamed
// responses still reach the client chunk by chunk.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// CircuitBreak short-circuits with 503 while breaker is open. Responses with
// a status >= 500 count as failures.
func CircuitBreak(breaker circuitbreaker.CircuitBreaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			_, err := breaker.Execute(func() (interface{}, error) {
				next.ServeHTTP(rw, r)
				if rw.statusCode >= http.StatusInternalServerError {
					return nil, fmt.Errorf("server error: status code %d", rw.statusCode)
				}
				return nil, nil
			})
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				http.Error(w, "Service Unavailable: Circuit Breaker is open", http.StatusServiceUnavailable)
			}
		})
	}
}
