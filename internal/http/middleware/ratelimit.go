// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RateLimiter is the edge limiter: one in-memory token bucket per client
// origin (golang.org/x/time/rate), swept of idle buckets every few thousand
// lookups. It caps raw request volume per visitor in front of the database.
// It is process-local and unrelated to the comment quota, which is counted
// in the database and holds across instances.
//
// Requests flagged as idempotent replays by IdempotencyValidator skip it.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-blog-engagement/internal/identity"
)

const (
	defaultBucketTTL  = 10 * time.Minute
	defaultSweepEvery = 5000

	// retryAfterNever is sent when the bucket can never refill (rps == 0).
	retryAfterNever = 60
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByClientOrigin keys buckets by the same origin the services fingerprint:
// the first X-Forwarded-For entry, else the transport remote address.
// Requests without either share the "origin:unknown" bucket.
func KeyByClientOrigin() keyFunc {
	return func(c *gin.Context) string {
		origin := identity.ClientOrigin(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr)
		if origin == "" {
			origin = identity.UnknownOrigin
		}
		return "origin:" + origin
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. It is safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	ttl        time.Duration
	sweepEvery uint64

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups uint64
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (values <= 0 become 1). rps == 0 lets each key spend its burst once.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		keyFn:      keyFn,
		ttl:        defaultBucketTTL,
		sweepEvery: defaultSweepEvery,
		buckets:    make(map[string]*bucket),
	}
}

// limiterFor returns the bucket for key, creating it on first use. The idle
// sweep runs before the lookup so a stale bucket for key itself is replaced.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that must not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the per-key limit. A denied request gets 429 with the
// standard error envelope and a Retry-After of whole seconds until the next
// token is available.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := time.Now()
		res := rl.limiterFor(rl.keyFn(c), now).ReserveN(now, 1)
		if res.OK() && res.DelayFrom(now) == 0 {
			c.Next()
			return
		}

		retry := retryAfterNever
		if res.OK() {
			if d := res.DelayFrom(now); rl.rps > 0 && d != rate.InfDuration {
				retry = retryAfterSeconds(d)
			}
			res.CancelAt(now)
		}
		httpRejected.WithLabelValues(rejectRateLimited).Inc()
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfterSeconds rounds d up to whole seconds, at least 1.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
