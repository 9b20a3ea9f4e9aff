// Package handlers exposes HTTP endpoints for the blog engagement API:
// view recording and counting, and reader comments.
//
// Handlers depend on small service interfaces rather than concrete types,
// so transport concerns (binding, status mapping, headers) stay separate
// from the deduplication and rate-limit logic in internal/services.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-engagement/internal/identity"
	"github.com/tbourn/go-blog-engagement/internal/services"
)

// ViewService records page views and reads view totals.
//
// Implemented by *services.ViewService.
type ViewService interface {
	// Record counts a visit unless its fingerprint was seen recently.
	Record(ctx context.Context, v services.Visit) (services.ViewResult, error)
	// CountMany returns zero-filled totals for the given slugs.
	CountMany(ctx context.Context, slugs []string) (map[string]int64, error)
}

// CommentService stores and lists reader comments.
//
// Implemented by *services.CommentService.
type CommentService interface {
	Submit(ctx context.Context, in services.CommentInput) (*services.PublicComment, error)
	List(ctx context.Context, slug string, limit int) ([]services.PublicComment, error)
	// Stats returns the inputs of the listing ETag.
	Stats(ctx context.Context, slug string) (int64, *time.Time, error)
}

// Handlers bundles the service dependencies used by the HTTP endpoints.
type Handlers struct {
	viewSvc    ViewService
	commentSvc CommentService
}

// New constructs a Handlers bound to the given services and makes sure the
// custom binding validators are registered.
func New(viewSvc ViewService, commentSvc CommentService) *Handlers {
	registerValidators()
	return &Handlers{viewSvc: viewSvc, commentSvc: commentSvc}
}

// clientOrigin resolves the visitor origin used for fingerprinting.
func clientOrigin(c *gin.Context) string {
	return identity.ClientOrigin(c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr)
}
