package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"floorsync/app/middleware"
	"floorsync/internal/model"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from a different origin; access is gated by the token
	},
}

// viewer names the dashboard behind a request for stream logs
func viewer(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil && claims.Subject != "" {
		return claims.Subject
	}
	return c.ClientIP()
}

// StreamHandler pushes session changes to dashboards over NDJSON or WebSocket
type StreamHandler struct {
	feed      sessionFeed
	keepAlive time.Duration
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(feed sessionFeed, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &StreamHandler{feed: feed, keepAlive: keepAlive}
}

// Stream writes one JSON frame per line: an initial frame with every active session, then
// insert, update and delete frames as they happen. Blank lines are keep-alives.
// @Summary Session change stream
// @Tags sessions
// @Produce application/x-ndjson
// @Router /api/v1/sessions/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	client := h.feed.Register()
	defer h.feed.Unregister(client)

	initial, err := h.feed.Initial(ctx)
	if err != nil {
		respondError(c, "load initial sessions", err)
		return
	}

	logger.InfoCtx(ctx, "session stream opened for %s", viewer(c))
	startNDJSON(c)
	if err := writeLine(c.Writer, initial); err != nil {
		return
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			logger.InfoCtx(ctx, "session stream dropped, client fell behind")
			return
		case frame := <-client.Frames():
			if err := writeLine(c.Writer, frame); err != nil {
				logger.DebugCtx(ctx, "session stream write failed: %v", err)
				return
			}
		case <-keepAlive.C:
			if _, err := c.Writer.Write([]byte("\n")); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// WebSocket carries the same frames as Stream, one per text message
// @Summary Session change stream over WebSocket
// @Tags sessions
// @Router /api/v1/sessions/ws [get]
func (h *StreamHandler) WebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	client := h.feed.Register()
	defer h.feed.Unregister(client)

	initial, err := h.feed.Initial(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to load initial sessions: %v", err)
		_ = writeMessage(ws, model.ErrorFrame("failed to load sessions"))
		return
	}
	logger.InfoCtx(ctx, "websocket session stream opened for %s", viewer(c))
	if err := writeMessage(ws, initial); err != nil {
		return
	}

	// the dashboard never sends data; reading surfaces its close and answers pings
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-peerGone:
			return
		case <-client.Done():
			logger.InfoCtx(ctx, "websocket session stream dropped, client fell behind")
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "fell behind"),
				time.Now().Add(wsWriteTimeout))
			return
		case frame := <-client.Frames():
			if err := writeMessage(ws, frame); err != nil {
				logger.DebugCtx(ctx, "websocket write failed: %v", err)
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func startNDJSON(c *gin.Context) {
	c.Header("Content-Type", constants.ContentTypeNDJSON)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

func writeLine(w gin.ResponseWriter, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func writeMessage(ws *websocket.Conn, v interface{}) error {
	if err := ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return ws.WriteJSON(v)
}
