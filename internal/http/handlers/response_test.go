package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Test_failInternal_HidesCauseAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	var ginErrs int
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
		ginErrs = len(c.Errors)
	})
	r.POST("/views", func(c *gin.Context) {
		failInternal(c, ErrCodeRecordFailed, errors.New("UNIQUE constraint failed: blog_stats.slug"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/views?slug=a", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeRecordFailed || resp.Message != internalErrorMessage {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if strings.Contains(w.Body.String(), "UNIQUE") {
		t.Fatalf("store error leaked to client: %s", w.Body.String())
	}

	logged := buf.String()
	if !strings.Contains(logged, `"level":"error"`) || !strings.Contains(logged, "blog_stats.slug") {
		t.Fatalf("expected cause in error log, got: %s", logged)
	}
	if ginErrs != 1 {
		t.Fatalf("expected the cause on c.Errors, got %d", ginErrs)
	}
}

func Test_Fail_404_And_OK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Next()
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.GET("/views", func(c *gin.Context) {
		ok(c, http.StatusOK, ViewsResponse{Views: map[string]int64{"a": 3}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json 404: %v", err)
	}
	if er.RequestID != "rid-404" || er.Code != ErrCodeNotFound || er.Message != "route not found" {
		t.Fatalf("unexpected 404 body: %+v", er)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/views", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"views":{"a":3}}` {
		t.Fatalf("unexpected ok response: %d %s", w.Code, w.Body.String())
	}
}
