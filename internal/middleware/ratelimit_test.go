package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remote string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/public/note/1", nil)
	req.RemoteAddr = remote
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2, nil)
	l.now = func() time.Time { return now }
	h := l.Handler(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:1002"))

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.2:1000"))

	// one token refills after a second
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1003"))
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:1004"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1, nil)
	l.now = func() time.Time { return now }
	h := l.Handler(okHandler())

	serve(h, "10.0.0.1:1")
	serve(h, "10.0.0.2:1")
	assert.Len(t, l.clients, 2)

	now = now.Add(2 * idleClientTTL)
	serve(h, "10.0.0.3:1")
	assert.Len(t, l.clients, 1)
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(0, 0, nil)
	assert.InDelta(t, 5, float64(l.rps), 0.001)
	assert.Equal(t, 10, l.burst)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientIP(req))
}
