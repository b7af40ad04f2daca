package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"floorsync/internal/model"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PipelineHandler serves job item progress and per-session pipeline context streams
type PipelineHandler struct {
	pipelines pipelineReader
	refresh   time.Duration
}

// NewPipelineHandler creates a new pipeline handler; refresh is how often a stream re-reads the route
func NewPipelineHandler(pipelines pipelineReader, refresh time.Duration) *PipelineHandler {
	if refresh <= 0 {
		refresh = constants.SnapshotPollInterval
	}
	return &PipelineHandler{pipelines: pipelines, refresh: refresh}
}

// Progress returns completion, WIP and bottleneck for a job item
// @Summary Job item progress
// @Tags pipeline
// @Produce json
// @Param id path string true "Job item ID"
// @Success 200 {object} pipeline.Progress
// @Router /api/v1/job-items/{id}/progress [get]
func (h *PipelineHandler) Progress(c *gin.Context) {
	progress, err := h.pipelines.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "compute job item progress", err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Stream writes the session's pipeline context as an initial frame, then an update frame
// whenever a re-read differs. Unchanged re-reads are sent as blank keep-alive lines.
// @Summary Pipeline context stream
// @Tags pipeline
// @Produce application/x-ndjson
// @Param id path string true "Session ID"
// @Router /api/v1/sessions/{id}/pipeline/stream [get]
func (h *PipelineHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	pc, err := h.pipelines.Context(ctx, sessionID)
	if err != nil {
		respondError(c, "load pipeline context", err)
		return
	}

	startNDJSON(c)
	if err := writeLine(c.Writer, model.PipelineFrame{Type: constants.FrameInitial, Context: pc}); err != nil {
		return
	}
	last, _ := json.Marshal(pc)

	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next, err := h.pipelines.Context(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WarnCtx(ctx, "failed to refresh pipeline context of session %s: %v", sessionID, err)
			if err := writeLine(c.Writer, model.PipelineFrame{Type: constants.FrameError, Message: err.Error()}); err != nil {
				return
			}
			continue
		}

		data, _ := json.Marshal(next)
		if bytes.Equal(data, last) {
			if _, err := c.Writer.Write([]byte("\n")); err != nil {
				return
			}
			c.Writer.Flush()
			continue
		}
		last = data
		if err := writeLine(c.Writer, model.PipelineFrame{Type: constants.FrameUpdate, Context: next}); err != nil {
			return
		}
	}
}
