// Package httpapi wires the Gin transport to the engagement services,
// middleware and handlers.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. body size limit and gzip
//  6. Metrics (and /metrics)
//  7. Idempotency validator, before the rate limiter so replays bypass it
//  8. Rate limiter keyed by client origin
//  9. CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engagement/docs"
	"github.com/tbourn/go-blog-engagement/internal/config"
	"github.com/tbourn/go-blog-engagement/internal/http/handlers"
	"github.com/tbourn/go-blog-engagement/internal/http/middleware"
	"github.com/tbourn/go-blog-engagement/internal/identity"
	"github.com/tbourn/go-blog-engagement/internal/repo"
	"github.com/tbourn/go-blog-engagement/internal/services"
)

// maxBodyBytes caps every request body. Comments are the largest payload.
const maxBodyBytes = 1 << 20

// Headers the browser sends and reads cross-origin.
var (
	corsAllowHeaders  = []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderIdempotencyKey}
	corsExposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed}
)

// RegisterRoutes attaches middleware and endpoints to r. counts may be nil,
// in which case view counts are always read from the database.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, counts services.CountCache, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	hasher := identity.NewHasher(cfg.Salt)

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, origin, slug, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, hasher.Fingerprint(origin), slug, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientOrigin())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		EnablePolicy:  true,
		ExposeHeaders: []string{"ETag", handlers.HeaderIdempotencyReplayed},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	}

	viewSvc := &services.ViewService{
		DB:             db,
		Hasher:         hasher,
		Window:         cfg.Views.Window,
		StoreRawOrigin: cfg.Views.StoreRawOrigin,
	}
	// A nil *cache.CountCache inside the interface would not compare equal to nil.
	if counts != nil {
		viewSvc.Cache = counts
	}
	commentSvc := &services.CommentService{
		DB:             db,
		Hasher:         hasher,
		Window:         cfg.Comments.Window,
		MaxPerWindow:   cfg.Comments.MaxPerWindow,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	h := handlers.New(viewSvc, commentSvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/views", h.RecordView)
		api.GET("/views", h.GetViews)

		api.GET("/comments", h.ListComments)
		api.POST("/comments", h.PostComment)
	}
}

// corsMiddleware allows any origin when the allowlist is empty. Otherwise it
// echoes allowlisted origins, including on plain GETs without a preflight.
func corsMiddleware(allowedOrigins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     corsAllowHeaders,
		ExposeHeaders:    corsExposeHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(allowedOrigins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = allowedOrigins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; oversized reads fail downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
