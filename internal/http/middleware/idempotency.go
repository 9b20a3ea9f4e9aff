// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on comment submissions. A
// valid key is stashed on the context for the handler; when a lookup reports
// that the same visitor already completed a request with that key for the
// same slug, the request is flagged so the edge rate limiter lets it through. Serving the stored comment is left to the comment service.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-engagement/internal/identity"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the key length; values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a stored, unexpired result exists for
// (origin, slug, key) at now. origin is the raw client origin; implementations
// fingerprint it the same way the services do. slug arrives trimmed, as the
// comment service stores it. Lookup errors are ignored by
// the middleware and never block the request.
type IdempotencyLookup func(ctx context.Context, origin, slug, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header when present.
//
//   - absent header: no-op;
//   - invalid header: 400 with the standard error envelope;
//   - lookup hit: the request is exempt from rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			httpRejected.WithLabelValues(rejectInvalidIdempotKey).Inc()
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_request",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if slug := strings.TrimSpace(c.Query("slug")); lookup != nil && slug != "" {
			origin := identity.ClientOrigin(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr)
			if exists, _ := lookup(c.Request.Context(), origin, slug, key, time.Now().UTC()); exists {
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
