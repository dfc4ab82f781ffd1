package middleware

import (
	"net/http"
	"sync"
	"time"
)

// clientLimiter hands out tokens per client key. Each key gets a bucket that
// refills at rate tokens per second up to burst.
type clientLimiter struct {
	mu    sync.Mutex
	seen  map[string]*tokenBucket
	rate  float64
	burst float64
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

func newClientLimiter(rate float64, burst int) *clientLimiter {
	l := &clientLimiter{
		seen:  make(map[string]*tokenBucket),
		rate:  rate,
		burst: float64(burst),
	}
	go l.evictLoop()
	return l
}

// allow takes one token for key, refilling first based on elapsed time.
func (l *clientLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.seen[key]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastSeen: now}
		l.seen[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictLoop drops buckets for clients that have gone quiet so the map does
// not grow without bound.
func (l *clientLimiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		l.mu.Lock()
		for key, b := range l.seen {
			if b.lastSeen.Before(cutoff) {
				delete(l.seen, key)
			}
		}
		l.mu.Unlock()
	}
}

// clientKey identifies the caller. chi's RealIP middleware rewrites
// X-Real-Ip upstream of us; the socket address is the fallback.
func clientKey(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// RateLimit rejects clients exceeding rate requests per second (with the
// given burst) with 429 Too Many Requests.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newClientLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientKey(r), time.Now()) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
