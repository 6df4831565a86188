package restapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"bctvictracker.ca/internal/clock"
)

// rateLimitClient tracks one client's limiter and its last usage time so
// inactive clients can be evicted without disrupting active ones.
type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// RateLimitMiddleware applies a per-client-IP request rate limit. This is a
// public rider-facing API with no keys, so the client IP is the best
// identity available.
type RateLimitMiddleware struct {
	limiters  map[string]*rateLimitClient
	mu        sync.Mutex
	rateLimit rate.Limit
	burstSize int
	clock     clock.Clock
	stopChan  chan struct{}
	stopOnce  sync.Once
}

const (
	rateLimitCleanupInterval = time.Minute
	rateLimitClientIdleTTL   = 10 * time.Minute
)

// NewRateLimitMiddleware creates a middleware allowing ratePerSecond requests
// per client IP with a burst of twice that. A non-positive rate disables
// limiting.
func NewRateLimitMiddleware(ratePerSecond int, clk clock.Clock) *RateLimitMiddleware {
	limit := rate.Inf
	burst := 1
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
		burst = ratePerSecond * 2
	}

	middleware := &RateLimitMiddleware{
		limiters:  make(map[string]*rateLimitClient),
		rateLimit: limit,
		burstSize: burst,
		clock:     clk,
		stopChan:  make(chan struct{}),
	}

	go middleware.cleanupLoop()

	return middleware
}

// Middleware wraps next with the rate limit check.
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimit == rate.Inf {
			next.ServeHTTP(w, r)
			return
		}

		client := m.clientFor(clientIP(r))
		client.lastSeen.Store(m.clock.Now().UnixNano())

		if !client.limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stop terminates the background cleanup goroutine.
func (m *RateLimitMiddleware) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

func (m *RateLimitMiddleware) clientFor(ip string) *rateLimitClient {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.limiters[ip]
	if !ok {
		client = &rateLimitClient{
			limiter: rate.NewLimiter(m.rateLimit, m.burstSize),
		}
		m.limiters[ip] = client
	}
	return client
}

func (m *RateLimitMiddleware) cleanupLoop() {
	ticker := time.NewTicker(rateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdleClients()
		case <-m.stopChan:
			return
		}
	}
}

func (m *RateLimitMiddleware) evictIdleClients() {
	cutoff := m.clock.Now().Add(-rateLimitClientIdleTTL).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()

	for ip, client := range m.limiters {
		if client.lastSeen.Load() < cutoff {
			delete(m.limiters, ip)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
