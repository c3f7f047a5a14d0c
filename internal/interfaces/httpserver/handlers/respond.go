package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/utils/platformerrors"
)

// respondError maps a platform error onto an HTTP status and a stable JSON
// shape. Unknown errors become opaque 500s so internals never leak.
func respondError(c *gin.Context, err error) {
	var perr *platformerrors.PlatformError
	if !errors.As(err, &perr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(platformerrors.ErrorTypeInternal),
			"message": "internal error",
		})
		return
	}

	platformerrors.LogError(logger.GetLogger(), perr)
	c.JSON(platformerrors.ErrorTypeToHTTPStatus(perr.Type), gin.H{
		"error":      string(perr.Type),
		"message":    perr.Message,
		"request_id": perr.RequestID,
	})
}
