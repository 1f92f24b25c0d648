package handlers

import (
	"net/http"

	"github.com/codecom/codecom-api/internal/models"
	"github.com/gin-gonic/gin"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondResult sends the uniform submission response body and attaches err
// (if any) to the gin context for the request log.
func respondResult(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, models.SubmissionResult{
		Success: status == http.StatusOK,
		Message: message,
	})
}
