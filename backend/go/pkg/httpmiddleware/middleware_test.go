package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"student_mentor/backend/go/pkg/circuitbreaker"
	"student_mentor/backend/go/pkg/ratelimiter"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreak_ForwardsFlush(t *testing.T) {
	h := CircuitBreak(circuitbreaker.New(1, 1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: a\n\n"))
		f, ok := w.(http.Flusher)
		if assert.True(t, ok, "wrapped writer must be a Flusher") {
			f.Flush()
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: a\n\n", rec.Body.String())
}

func TestCircuitBreak_OpensOnServerErrors(t *testing.T) {
	h := CircuitBreak(circuitbreaker.New(1, 1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(ratelimiter.NewTokenBucket(0, 1))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
