package handler

import (
	"errors"
	"net/http"

	"floorsync/internal/pipeline"
	"floorsync/internal/service"
	"floorsync/pkg/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps service sentinels to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrJobItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, service.ErrNoJobItem):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownStatus), errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoStatusDefinition), errors.Is(err, pipeline.ErrInvalidSteps):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, action string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), "failed to %s: %v", action, err)
		c.JSON(code, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
