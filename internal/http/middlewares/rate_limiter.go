package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter per key. Each search fans out to every provider, so
// it protects the upstream quotas as much as this process.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	now     func() time.Time
	clients map[string]*clientBucket
	sweepAt time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// RateLimiterMiddleware enforces the limit for a derived key and advertises the budget in
// X-RateLimit-* headers. A limit <= 0 disables it.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		d := rl.allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.remaining))

		if !d.ok {
			c.Header("Retry-After", strconv.Itoa(d.retryAfter))
			id, _ := c.Get(CtxRequestID)
			reqID, _ := id.(string)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":      "rate_limited",
					"message":   "Too many searches. Please try again shortly.",
					"requestId": reqID,
				},
			})
			return
		}

		c.Next()
	}
}

type decision struct {
	ok         bool
	remaining  int
	retryAfter int // whole seconds, rounded up
}

func (rl *RateLimiter) allow(key string) decision {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	b, ok := rl.clients[key]
	if !ok || now.After(b.windowEnd) {
		rl.clients[key] = &clientBucket{count: 1, windowEnd: now.Add(rl.window)}
		return decision{ok: true, remaining: rl.limit - 1}
	}

	if b.count >= rl.limit {
		wait := b.windowEnd.Sub(now)
		secs := int(wait / time.Second)
		if wait%time.Second != 0 {
			secs++
		}
		if secs < 1 {
			secs = 1
		}
		return decision{retryAfter: secs}
	}

	b.count++
	return decision{ok: true, remaining: rl.limit - b.count}
}

// sweep drops expired buckets at most once per window; callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Before(rl.sweepAt) {
		return
	}
	for k, b := range rl.clients {
		if now.After(b.windowEnd) {
			delete(rl.clients, k)
		}
	}
	rl.sweepAt = now.Add(rl.window)
}

func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// clientIP relies on gin's trusted proxy settings for X-Forwarded-For.
func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}
