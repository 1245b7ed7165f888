package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Retry-After header
	"sync"     // Bucket map lock
	"time"     // Clock and durations

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
	"golang.org/x/time/rate"     // Token buckets
)

// RateLimiter keeps one token bucket per account, or per client IP before authentication
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst
func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*entry),
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.seen = time.Now()
	return e.limiter
}

// Handler rejects requests over the budget with 429
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id, ok := AccountID(c); ok {
			key = "account:" + strconv.FormatUint(uint64(id), 10)
		}
		if !rl.limiter(key).Allow() {
			logrus.WithFields(logrus.Fields{"key": key, "path": c.FullPath()}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}

// Sweep drops limiters not used for a while; it returns how many were removed
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-rl.idle)
	removed := 0
	for k, e := range rl.limiters {
		if e.seen.Before(cutoff) {
			delete(rl.limiters, k)
			removed++
		}
	}
	return removed
}
