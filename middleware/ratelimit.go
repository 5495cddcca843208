package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/internal/slogx"
)

// RateLimitConfig is a token bucket per client key.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// Scope labels the limiter in logs and audit events.
	Scope string
}

// KeyExtractor picks the bucket a request is charged to.
type KeyExtractor func(*http.Request) string

type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle buckets. A bucket that has refilled completely has
// not been used for a while.
func (rl *rateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit rejects requests over the configured rate with 429. Rejections
// are reported to engine for metrics and audit; engine may be nil. A nil key
// charges the socket peer (ClientIP).
func RateLimit(engine *sessionauth.Engine, cfg RateLimitConfig, key KeyExtractor) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	rl := &rateLimiter{
		rate:        rate.Limit(cfg.RequestsPerSecond),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.get(k)
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			reservation := limiter.Reserve()
			retryAfter := max(int(reservation.Delay().Seconds()), 1)
			reservation.Cancel()

			ctx := r.Context()
			slogx.FromContext(ctx).Warn("rate limit exceeded",
				"scope", cfg.Scope,
				"key", k,
				"retry_after", retryAfter,
			)
			engine.ReportRateLimited(sessionauth.WithClientIP(ctx, k), cfg.Scope)

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			WriteJSON(w, http.StatusTooManyRequests, ErrorBody{Message: "Too many requests. Please try again later."})
		})
	}
}
