package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key. A client may burst up to
// limit requests and then refills at limit per window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*visitor
	limit   int
	every   rate.Limit
	window  time.Duration

	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		clients:   make(map[string]*visitor),
		limit:     limit,
		every:     rate.Every(window / time.Duration(limit)),
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Limit returns the burst size.
func (rl *RateLimiter) Limit() int { return rl.limit }

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	return rl.visitor(key, now).AllowN(now, 1)
}

// Remaining returns the whole tokens left for key.
func (rl *RateLimiter) Remaining(key string) int {
	now := rl.now()
	return int(math.Max(0, math.Floor(rl.visitor(key, now).TokensAt(now))))
}

// RetryAfter is how long a throttled client waits for the next token.
func (rl *RateLimiter) RetryAfter() time.Duration {
	return rl.window / time.Duration(rl.limit)
}

func (rl *RateLimiter) visitor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Buckets idle for two windows are full again and can be dropped.
	if now.Sub(rl.lastSweep) > rl.window {
		for k, v := range rl.clients {
			if now.Sub(v.lastSeen) > 2*rl.window {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.clients[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Clients returns the number of tracked keys.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit throttles requests per client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitWithKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitWithKey throttles requests per key(c).
func RateLimitWithKey(limiter *RateLimiter, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		allowed := limiter.Allow(k)

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(k)))

		if !allowed {
			retry := int(math.Ceil(limiter.RetryAfter().Seconds()))
			h.Set("Retry-After", strconv.Itoa(max(retry, 1)))
			abortWithError(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
