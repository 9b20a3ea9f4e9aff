package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-engagement/internal/http/middleware"
	"github.com/tbourn/go-blog-engagement/internal/services"
	"github.com/tbourn/go-blog-engagement/internal/utils"
)

// HeaderIdempotencyReplayed is set to "true" when POST /comments answers
// with a comment stored by an earlier request carrying the same key.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// PostCommentRequest is the JSON body of POST /comments.
type PostCommentRequest struct {
	Name      string `json:"name" example:"Jane"`
	Email     string `json:"email" example:"jane@example.com"`
	Content   string `json:"content" example:"Great post!"`
	HideEmail bool   `json:"hideEmail" example:"false"`
}

// PostCommentResponse wraps the stored comment in its public form.
type PostCommentResponse struct {
	OK   bool                    `json:"ok" example:"true"`
	Item *services.PublicComment `json:"item"`
}

// ListCommentsResponse is returned by GET /comments.
type ListCommentsResponse struct {
	Items []services.PublicComment `json:"items"`
}

// PostComment godoc
// @ID          postComment
// @Summary     Submit a comment
// @Description Stores a comment for the slug. At most COMMENT_MAX_PER_WINDOW comments
// @Description are accepted per (email, visitor) within COMMENT_WINDOW.
// @Description Supports idempotency via the Idempotency-Key header (a repeated key returns the stored comment).
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       slug             query   string                       true   "Post slug"  example(hello-world)
// @Param       Idempotency-Key  header  string                       false  "Idempotency key for safe retries"
// @Param       body             body    handlers.PostCommentRequest  true   "Comment payload"
//
// @Success     200  {object}  handlers.PostCommentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing slug or malformed body"
// @Failure     422  {object}  handlers.ErrorResponse  "Invalid email or comment too short"
// @Failure     429  {object}  handlers.ErrorResponse  "Comment rate limit exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /comments [post]
func (h *Handlers) PostComment(c *gin.Context) {
	var q slugQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug")
		return
	}

	var req PostCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)

	item, err := h.commentSvc.Submit(c.Request.Context(), services.CommentInput{
		Slug:           q.Slug,
		Name:           req.Name,
		Email:          req.Email,
		Content:        req.Content,
		HideEmail:      req.HideEmail,
		Origin:         clientOrigin(c),
		UserAgent:      c.Request.UserAgent(),
		IdempotencyKey: key,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingSlug):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug")
		case errors.Is(err, services.ErrInvalidEmail):
			fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, "invalid email")
		case errors.Is(err, services.ErrCommentTooShort):
			fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, "comment is too short")
		case errors.Is(err, services.ErrRateLimited):
			c.Header("Retry-After", "3600")
			fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "comment rate limit exceeded")
		default:
			failInternal(c, ErrCodeCreateFailed, err)
		}
		return
	}

	if item.Replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusOK, PostCommentResponse{OK: true, Item: item})
}

// ListComments godoc
// @ID          listComments
// @Summary     List approved comments
// @Description Returns approved comments for the slug, newest first. Raw emails are
// @Description never returned; publicEmail is masked or null.
// @Description A weak ETag is set; a matching If-None-Match yields 304.
// @Tags        Comments
// @Produce     json
//
// @Param       slug           query   string  true   "Post slug"
// @Param       limit          query   int     false  "Max items"  minimum(1) maximum(500) default(100)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
//
// @Success     200  {object}  handlers.ListCommentsResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing slug"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()

	var q slugQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug")
		return
	}
	limit := utils.Limit(c.Query("limit"), services.DefaultCommentListLimit, services.MaxCommentListLimit)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.commentSvc.Stats(ctx, q.Slug); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixMilli()
		}
		etag := fmt.Sprintf(`W/"comments:%d:%d:%d"`, limit, count, ts)
		c.Header("ETag", etag)
		if etagMatch(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.commentSvc.List(ctx, q.Slug, limit)
	if err != nil {
		if errors.Is(err, services.ErrMissingSlug) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug")
			return
		}
		failInternal(c, ErrCodeListFailed, err)
		return
	}

	ok(c, http.StatusOK, ListCommentsResponse{Items: items})
}

// etagMatch reports whether an If-None-Match value names etag. Weak
// comparison is used, so the W/ prefix is ignored on both sides.
func etagMatch(inm, etag string) bool {
	if inm == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(inm, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
