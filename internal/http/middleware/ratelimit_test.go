package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLimiterBurstThenRefill(t *testing.T) {
	limiter := &clientLimiter{seen: make(map[string]*tokenBucket), rate: 1, burst: 2}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.allow("10.0.0.1", now))
	assert.True(t, limiter.allow("10.0.0.1", now))
	assert.False(t, limiter.allow("10.0.0.1", now))

	// One second refills one token at rate 1.
	assert.True(t, limiter.allow("10.0.0.1", now.Add(time.Second)))
	assert.False(t, limiter.allow("10.0.0.1", now.Add(time.Second)))
}

func TestClientLimiterKeysAreIndependent(t *testing.T) {
	limiter := &clientLimiter{seen: make(map[string]*tokenBucket), rate: 1, burst: 1}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.allow("10.0.0.1", now))
	assert.False(t, limiter.allow("10.0.0.1", now))
	assert.True(t, limiter.allow("10.0.0.2", now))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/coach/query", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.9")

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
