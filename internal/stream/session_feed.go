package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"floorsync/internal/livestore"
	"floorsync/internal/model"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"
)

// SessionFeed applies session stream frames to a store
type SessionFeed struct {
	store *livestore.Store
}

// NewSessionFeed creates a feed writing into store
func NewSessionFeed(store *livestore.Store) *SessionFeed {
	return &SessionFeed{store: store}
}

// HandleFrame implements FrameHandler
func (f *SessionFeed) HandleFrame(ctx context.Context, data []byte) error {
	var frame model.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("decode session frame: %w", err)
	}

	switch frame.Type {
	case constants.FrameInitial:
		f.store.ApplyBatch(activeOnly(frame.Sessions))
	case constants.FrameInsert, constants.FrameUpdate:
		if frame.Session == nil || frame.Session.ID == "" {
			return fmt.Errorf("%s frame without session", frame.Type)
		}
		if !frame.Session.IsActive() {
			f.store.Remove(frame.Session.ID)
			return nil
		}
		f.store.ApplyOne(frame.Session)
	case constants.FrameDelete:
		if frame.SessionID == "" {
			return fmt.Errorf("delete frame without sessionId")
		}
		f.store.Remove(frame.SessionID)
	case constants.FrameError:
		logger.WarnCtx(ctx, "session stream reported error: %s", frame.Message)
	default:
		return fmt.Errorf("unknown frame type %q", frame.Type)
	}
	return nil
}

func activeOnly(sessions []*model.Session) []*model.Session {
	out := make([]*model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s != nil && s.ID != "" && s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// Config where and how a dashboard reaches the server
type Config struct {
	BaseURL      string
	Token        string
	WebSocket    bool
	RequireAuth  bool
	HTTPClient   *http.Client
	PollInterval time.Duration
}

func (c Config) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c Config) transport(path, wsPath string) Transport {
	if c.WebSocket {
		u := c.url(wsPath)
		u = strings.Replace(u, "http://", "ws://", 1)
		u = strings.Replace(u, "https://", "wss://", 1)
		return &WebSocketTransport{URL: u, Token: c.Token}
	}
	return &HTTPTransport{URL: c.url(path), Token: c.Token, Client: c.HTTPClient}
}

// NewSessionClient wires a client that keeps store in sync with the server's active sessions,
// falling back to snapshot polling when the stream cannot be kept up.
func NewSessionClient(store *livestore.Store, cfg Config) *Client {
	opts := Options{
		Name:        "sessions",
		Transport:   cfg.transport("/api/v1/sessions/stream", "/api/v1/sessions/ws"),
		Handler:     NewSessionFeed(store),
		OnState:     store.SetConnectionState,
		Token:       cfg.Token,
		RequireAuth: cfg.RequireAuth,
		Poller: &SnapshotPoller{
			Client: &SnapshotClient{URL: cfg.url("/api/v1/sessions/active"), Token: cfg.Token, Client: cfg.HTTPClient},
			Store:  store,
		},
	}
	opts.PollInterval = cfg.PollInterval
	return NewClient(opts)
}
