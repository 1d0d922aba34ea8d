package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/potensia/inkwell/config"
	"github.com/potensia/inkwell/errors"
	"github.com/potensia/inkwell/server/metrics"
	"golang.org/x/time/rate"
)

type rateLimiters struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
}

func (l *rateLimiters) GetOrCreate(ip string, create func() *rate.Limiter) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.visitors[ip]
	if !exists {
		limiter = create()
		l.visitors[ip] = limiter
	}

	return limiter
}

// RateLimiter implements per-IP rate limiting configured from
// config.RateLimitConfig.
type RateLimiter struct {
	cfg      config.RateLimitConfig
	limiters *rateLimiters
	metrics  *metrics.Metrics
}

// NewRateLimiter creates a rate limiter with its own visitor table.
func NewRateLimiter(cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		cfg: cfg,
		limiters: &rateLimiters{
			visitors: make(map[string]*rate.Limiter),
		},
		metrics: m,
	}
}

// Middleware rejects requests that exceed the configured per-IP rate
// with a structured 429 response. When rate limiting is disabled the
// middleware is a passthrough.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	interval := time.Minute / time.Duration(rl.cfg.RequestsPerMinute)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get IP address from request
		ip := r.RemoteAddr
		if idx := strings.LastIndex(ip, ":"); idx != -1 {
			ip = ip[:idx] // Strip port number if present
		}

		// Get rate limiter for this IP
		limiter := rl.limiters.GetOrCreate(ip, func() *rate.Limiter {
			return rate.NewLimiter(rate.Every(interval), rl.cfg.Burst)
		})

		// Try to allow request
		if !limiter.Allow() {
			if rl.metrics != nil {
				rl.metrics.RateLimitHits.WithLabelValues(ip).Inc()
			}

			errResp := errors.NewError(
				errors.RateLimitError,
				"Rate limit exceeded",
				http.StatusTooManyRequests,
				RequestIDFromContext(r.Context()),
				map[string]interface{}{
					"limit":  int64(rl.cfg.RequestsPerMinute),
					"window": "1m0s",
				},
				nil,
			)

			errors.WriteError(w, errResp)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Reset clears all visitor limiters. Only used for testing.
func (rl *RateLimiter) Reset() {
	rl.limiters.mu.Lock()
	defer rl.limiters.mu.Unlock()
	rl.limiters.visitors = make(map[string]*rate.Limiter)
}
