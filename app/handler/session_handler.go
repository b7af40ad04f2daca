package handler

import (
	"net/http"

	"floorsync/internal/model"

	"github.com/gin-gonic/gin"
)

// SessionHandler serves the dashboard snapshot and worker station actions
type SessionHandler struct {
	sessions sessionActions
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions sessionActions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Active returns every active session
// @Summary Active sessions snapshot
// @Tags sessions
// @Produce json
// @Success 200 {object} model.SnapshotResponse
// @Router /api/v1/sessions/active [get]
func (h *SessionHandler) Active(c *gin.Context) {
	sessions, err := h.sessions.ActiveSessions(c.Request.Context())
	if err != nil {
		respondError(c, "list active sessions", err)
		return
	}
	c.JSON(http.StatusOK, model.SnapshotResponse{Sessions: sessions})
}

// Start opens a session for a worker at a station
// @Summary Start session
// @Tags worker
// @Accept json
// @Produce json
// @Param request body model.StartSessionRequest true "Worker, station and opening status"
// @Success 201 {object} model.Session
// @Router /v1/sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "start session", err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Heartbeat keeps a station's session alive
// @Summary Session heartbeat
// @Tags worker
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Router /v1/sessions/{id}/heartbeat [post]
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	if err := h.sessions.Heartbeat(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "record heartbeat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ChangeStatus switches the session to another status definition
// @Summary Change session status
// @Tags worker
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body model.StatusChangeRequest true "New status"
// @Success 200 {object} model.StatusEvent
// @Router /v1/sessions/{id}/status [post]
func (h *SessionHandler) ChangeStatus(c *gin.Context) {
	var req model.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.sessions.ChangeStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "change status", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ReportQuantity adds produced good and scrap units to the session totals
// @Summary Report produced quantity
// @Tags worker
// @Accept json
// @Param id path string true "Session ID"
// @Param request body model.QuantityReport true "Quantities"
// @Success 200 {object} map[string]string
// @Router /v1/sessions/{id}/quantity [post]
func (h *SessionHandler) ReportQuantity(c *gin.Context) {
	var report model.QuantityReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sessions.ReportQuantity(c.Request.Context(), c.Param("id"), &report); err != nil {
		respondError(c, "report quantity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// End completes the session at the worker's request
// @Summary End session
// @Tags worker
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Router /v1/sessions/{id}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "end session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// History lists the session's status events
// @Summary Session status history
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {array} model.StatusEvent
// @Router /api/v1/sessions/{id}/events [get]
func (h *SessionHandler) History(c *gin.Context) {
	events, err := h.sessions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "list status events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// StatusDefinitions lists the statuses a station can switch to
// @Summary Status definitions
// @Tags worker
// @Produce json
// @Success 200 {array} model.StatusDefinition
// @Router /v1/status-definitions [get]
func (h *SessionHandler) StatusDefinitions(c *gin.Context) {
	defs, err := h.sessions.StatusDefinitions(c.Request.Context())
	if err != nil {
		respondError(c, "list status definitions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"definitions": defs})
}
