package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engagement/internal/config"
	"github.com/tbourn/go-blog-engagement/internal/domain"
	"github.com/tbourn/go-blog-engagement/internal/http/handlers"
	"github.com/tbourn/go-blog-engagement/internal/http/middleware"
	"github.com/tbourn/go-blog-engagement/internal/identity"
	"github.com/tbourn/go-blog-engagement/internal/repo"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		Salt:           "pepper",
		RateRPS:        100,
		RateBurst:      10,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		Views:          config.ViewsConfig{Window: time.Hour},
		Comments:       config.CommentsConfig{Window: time.Hour, MaxPerWindow: 5},
		IdempotencyTTL: time.Hour,
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, nil, cfg)
	return r, db
}

func serve(r http.Handler, method, target string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	w := serve(r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = serve(r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("blog_views_counted_total")) {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w := serve(r, http.MethodGet, "/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/api/v1/views", nil, nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /views expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://blog.example.com"}}
	r, _ := newRouter(t, cfg)

	w := serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://blog.example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://blog.example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	w = serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected ACAO for foreign origin: %q", got)
	}
}

func TestRegisterRoutes_ExposesEngagementHeaders(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	w := serve(r, http.MethodGet, "/health", nil, nil)
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{"X-Request-ID", "ETag", handlers.HeaderIdempotencyReplayed} {
		if !bytes.Contains([]byte(exposed), []byte(h)) {
			t.Fatalf("%s not exposed: %q", h, exposed)
		}
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	w := serve(r, http.MethodGet, "/api/v1/views?slug=a", nil, map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}
}

func TestRegisterRoutes_SwaggerToggle(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	if w := serve(r, http.MethodGet, "/swagger/index.html", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: expected 404, got %d", w.Code)
	}

	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ = newRouter(t, cfg)
	if w := serve(r, http.MethodGet, "/swagger/doc.json", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("swagger enabled: expected 200, got %d", w.Code)
	}
}

func TestViews_Flow(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	hdr := map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}

	for i, wantInc := range []bool{true, false} {
		w := serve(r, http.MethodPost, "/api/v1/views?slug=hello", nil, hdr)
		if w.Code != http.StatusOK {
			t.Fatalf("#%d status=%d body=%s", i, w.Code, w.Body.String())
		}
		var got handlers.RecordViewResponse
		_ = json.Unmarshal(w.Body.Bytes(), &got)
		if !got.OK || got.Incremented != wantInc || got.Views != 1 {
			t.Fatalf("#%d unexpected: %+v", i, got)
		}
	}

	w := serve(r, http.MethodPost, "/api/v1/views?slug=hello", nil, map[string]string{"X-Forwarded-For": "198.51.100.1"})
	var rec handlers.RecordViewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if !rec.Incremented || rec.Views != 2 {
		t.Fatalf("second visitor: %+v", rec)
	}

	w = serve(r, http.MethodGet, "/api/v1/views?slugs=hello,unseen", nil, nil)
	var many handlers.ViewsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &many)
	if many.Views["hello"] != 2 || many.Views["unseen"] != 0 || len(many.Views) != 2 {
		t.Fatalf("unexpected views: %+v", many.Views)
	}

	if w := serve(r, http.MethodPost, "/api/v1/views", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing slug: status=%d", w.Code)
	}
}

func TestComments_ReplayBypassesEdgeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r, db := newRouter(t, cfg)

	body, _ := json.Marshal(handlers.PostCommentRequest{Name: "Jane", Email: "jane@example.com", Content: "Lovely post"})
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "k-1"}

	w := serve(r, http.MethodPost, "/api/v1/comments?slug=post", body, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("first: status=%d body=%s", w.Code, w.Body.String())
	}
	var first handlers.PostCommentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &first)

	// Padding around the slug still matches the stored, trimmed record.
	w = serve(r, http.MethodPost, "/api/v1/comments?slug=%20post%20", body, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: status=%d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get(handlers.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("expected replay header")
	}
	var second handlers.PostCommentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	if first.Item == nil || second.Item == nil || first.Item.ID != second.Item.ID {
		t.Fatalf("replay returned a different comment: %s", w.Body.String())
	}

	var n int64
	db.Model(&domain.Comment{}).Count(&n)
	if n != 1 {
		t.Fatalf("stored comments=%d", n)
	}

	if w := serve(r, http.MethodPost, "/api/v1/comments?slug=post", body, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("without key the bucket is empty: status=%d", w.Code)
	}
}

func TestIdempotencyLookup_UsesFingerprintedOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r, db := newRouter(t, cfg)

	now := time.Now().UTC()
	c := &domain.Comment{Slug: "post", Email: "a@b.co", EmailHash: "h", Content: "seeded", IPHash: "x", Approved: true, CreatedAt: now}
	if err := repo.CreateComment(context.Background(), db, c); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	// httptest requests come from 192.0.2.1.
	ipHash := identity.NewHasher(cfg.Salt).Fingerprint("192.0.2.1")
	if _, err := repo.CreateIdempotency(context.Background(), db, ipHash, "post", "seeded-key", c.ID, 1, now, time.Hour); err != nil {
		t.Fatalf("seed idempotency: %v", err)
	}

	// Drain the single token so only a replay can get through.
	_ = serve(r, http.MethodGet, "/health", nil, nil)

	body := []byte(`{"email":"a@b.co","content":"ignored"}`)
	w := serve(r, http.MethodPost, "/api/v1/comments?slug=post", body, map[string]string{middleware.HeaderIdempotencyKey: "seeded-key"})
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("seeded")) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	// Same key from another visitor is not a replay.
	w = serve(r, http.MethodPost, "/api/v1/comments?slug=post", body, map[string]string{
		middleware.HeaderIdempotencyKey: "seeded-key",
		"X-Forwarded-For":               "198.51.100.77",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("other visitor has its own bucket: status=%d", w.Code)
	}
	if w.Header().Get(handlers.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("other visitor must not replay")
	}
}

func TestIdempotencyLookup_DBErrorDoesNotBlock(t *testing.T) {
	r, db := newRouter(t, testConfig())
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	w := serve(r, http.MethodGet, "/health?slug=post", nil, map[string]string{middleware.HeaderIdempotencyKey: "force-error"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/echo", []byte("0123456789AB"), nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, nil, nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
