package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/setpointhq/setpoint/internal/ratelimit"
)

func chain(h http.Handler, extra ...Middleware) http.Handler {
	middleware := append(extra,
		WithLogging,
		WithRecovery,
		WithRequestID,
		WithContentType,
	)
	return ChainMiddleware(h, middleware...)
}

func TestChainSetsRequestID(t *testing.T) {
	var seen string
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value("request_id").(string)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Error("request_id missing from context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID header = %q, context value = %q", got, seen)
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("scoreboard on fire")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

type stubClock struct{ now time.Time }

func (s stubClock) Now() time.Time { return s.now }

func TestWriteRateLimitThrottlesMutations(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{
		WriteMaxPerMinute: 1,
		Clock:             stubClock{now: time.Now()},
	})
	defer limiter.Close()

	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), WithWriteRateLimit(limiter))

	send := func(method string) int {
		r := httptest.NewRequest(method, "/api/v1/teams", nil)
		r.RemoteAddr = "203.0.113.7:54321"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	if got := send(http.MethodPost); got != http.StatusOK {
		t.Fatalf("first write = %d, want 200", got)
	}
	if got := send(http.MethodPost); got != http.StatusTooManyRequests {
		t.Fatalf("second write = %d, want 429", got)
	}
	// Reads are never throttled.
	if got := send(http.MethodGet); got != http.StatusOK {
		t.Errorf("read = %d, want 200", got)
	}
}
