package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-engagement/internal/services"
)

// RecordViewResponse is returned by POST /views.
type RecordViewResponse struct {
	OK bool `json:"ok" example:"true"`
	// Incremented is false when the visitor was seen within the dedup window.
	Incremented bool  `json:"incremented" example:"true"`
	Views       int64 `json:"views" example:"42"`
}

// ViewsResponse is returned by GET /views. Every requested slug is present.
type ViewsResponse struct {
	Views map[string]int64 `json:"views"`
}

// RecordView godoc
// @ID          recordView
// @Summary     Record a page view
// @Description Counts one view for the slug unless the same visitor fingerprint
// @Description viewed it within the dedup window. Returns the current total either way.
// @Tags        Views
// @Produce     json
//
// @Param       slug             query   string  true   "Post slug"  example(hello-world)
// @Param       X-Forwarded-For  header  string  false  "Client origin chain; the first entry is used"
//
// @Success     200  {object}  handlers.RecordViewResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or invalid slug"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /views [post]
func (h *Handlers) RecordView(c *gin.Context) {
	var q slugQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug")
		return
	}

	res, err := h.viewSvc.Record(c.Request.Context(), services.Visit{
		Slug:      q.Slug,
		Origin:    clientOrigin(c),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, services.ErrMissingSlug) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug")
			return
		}
		failInternal(c, ErrCodeRecordFailed, err)
		return
	}

	ok(c, http.StatusOK, RecordViewResponse{OK: true, Incremented: res.Counted, Views: res.Views})
}

// GetViews godoc
// @ID          getViews
// @Summary     Read view totals
// @Description Returns the total for one slug (?slug=) or several (?slugs=a,b).
// @Description Slugs never viewed read as 0.
// @Tags        Views
// @Produce     json
//
// @Param       slug   query  string  false  "Single post slug"
// @Param       slugs  query  string  false  "Comma-separated post slugs"  example(a,b,c)
//
// @Success     200  {object}  handlers.ViewsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or invalid slug(s)"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /views [get]
func (h *Handlers) GetViews(c *gin.Context) {
	slugs, valid := parseSlugs(c.Query("slug"), c.Query("slugs"))
	if !valid || len(slugs) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug(s)")
		return
	}

	counts, err := h.viewSvc.CountMany(c.Request.Context(), slugs)
	if err != nil {
		if errors.Is(err, services.ErrMissingSlug) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing slug(s)")
			return
		}
		failInternal(c, ErrCodeListFailed, err)
		return
	}

	ok(c, http.StatusOK, ViewsResponse{Views: counts})
}
