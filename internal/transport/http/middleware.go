package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestLogging emits one structured line per request.
func RequestLogging(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client", c.ClientIP(),
		)
	}
}

const (
	throttleIdleEviction = 10 * time.Minute
	throttleMaxBuckets   = 4096
)

type throttle struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*throttleBucket
}

type throttleBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newThrottle(rps, burst int) *throttle {
	return &throttle{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*throttleBucket),
	}
}

func (t *throttle) allow(key string) bool {
	now := time.Now()
	t.mu.Lock()
	b, ok := t.buckets[key]
	if !ok {
		if len(t.buckets) >= throttleMaxBuckets {
			t.evict(now)
		}
		b = &throttleBucket{lim: rate.NewLimiter(t.rps, t.burst)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	t.mu.Unlock()
	return b.lim.Allow()
}

// evict drops buckets idle past the eviction window. Caller holds mu.
func (t *throttle) evict(now time.Time) {
	for key, b := range t.buckets {
		if now.Sub(b.lastSeen) > throttleIdleEviction {
			delete(t.buckets, key)
		}
	}
}

// Throttle caps each caller's request rate. Wallet-scoped routes are keyed
// by the phone number in the path, so one account cannot spray requests
// through rotating addresses; everything else keys on the client IP.
func Throttle(rps, burst int) gin.HandlerFunc {
	t := newThrottle(rps, burst)
	return func(c *gin.Context) {
		key := c.Param("phone")
		if key == "" {
			key = c.ClientIP()
		}
		if !t.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
