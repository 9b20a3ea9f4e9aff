// Package handlers holds the Gin handlers for the views and comments API.
//
// Every error leaves through fail or failInternal as an ErrorResponse with a
// stable code. Store errors are never echoed to clients: failInternal logs
// the cause with the request id and answers with a generic message.
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "too_many_requests",
//	  "message": "comment rate limit exceeded"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-blog-engagement/internal/http/middleware"
)

const internalErrorMessage = "internal error"

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching client reports to server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Machine-readable code, see errors.go.
	Code string `json:"code" example:"not_found"`
	// Human-readable and safe to show.
	Message string `json:"message" example:"resource not found"`
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failInternal answers 500 with code and records err on the request: it is
// logged here and attached to the gin context for the access log.
func failInternal(c *gin.Context, code string, err error) {
	_ = c.Error(err)
	middleware.LoggerFrom(c).Error().
		Err(err).
		Str("code", code).
		Msg("request failed")
	fail(c, http.StatusInternalServerError, code, internalErrorMessage)
}

// Fail writes the error envelope for callers outside this package, such as
// the router's 404 and 405 fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
