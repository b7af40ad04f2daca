package handler

import (
	"net/http"
	"time"

	"floorsync/internal/model"
	"floorsync/internal/service"
	"floorsync/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ReclaimHandler exposes the idle session sweep
type ReclaimHandler struct {
	sweeper sweeper
	now     func() time.Time
}

// NewReclaimHandler creates a new reclaim handler
func NewReclaimHandler(sweeper sweeper) *ReclaimHandler {
	return &ReclaimHandler{
		sweeper: sweeper,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Reclaim closes every session idle past the threshold
// @Summary Reclaim idle sessions
// @Tags sessions
// @Produce json
// @Success 200 {object} model.ReclaimResponse
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/reclaim [post]
func (h *ReclaimHandler) Reclaim(c *gin.Context) {
	closed, err := h.sweeper.Sweep(c.Request.Context(), h.now())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "reclaim sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": service.ErrFetchFailed.Error()})
		return
	}
	c.JSON(http.StatusOK, model.ReclaimResponse{OK: true, Closed: closed})
}
