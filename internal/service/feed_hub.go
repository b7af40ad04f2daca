package service

import (
	"context"
	"sync"
	"time"

	"floorsync/internal/model"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"
)

const defaultClientBuffer = 64

// FeedClient one connected dashboard stream
type FeedClient struct {
	id     uint64
	frames chan *model.Frame
	done   chan struct{}
	once   sync.Once
}

// Frames delivers frames in publish order
func (c *FeedClient) Frames() <-chan *model.Frame {
	return c.frames
}

// Done is closed when the hub drops the client, either on Unregister or because it fell behind
func (c *FeedClient) Done() <-chan struct{} {
	return c.done
}

func (c *FeedClient) close() {
	c.once.Do(func() { close(c.done) })
}

// FeedHub turns change events from every replica into frames for this replica's streams
type FeedHub struct {
	sessions   sessionRepository
	subscriber changeSubscriber
	buffer     int

	ctx     context.Context
	mu      sync.RWMutex
	nextID  uint64
	clients map[uint64]*FeedClient
}

// NewFeedHub creates a hub; buffer is the per-client frame backlog tolerated before dropping it
func NewFeedHub(sessions sessionRepository, subscriber changeSubscriber, buffer int) *FeedHub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &FeedHub{
		sessions:   sessions,
		subscriber: subscriber,
		buffer:     buffer,
		ctx:        context.Background(),
		clients:    make(map[uint64]*FeedClient),
	}
}

// Start subscribes to the change feed until ctx is done
func (h *FeedHub) Start(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()
	return h.subscriber.Subscribe(ctx, h.HandleChange)
}

// Register adds a stream. Register before reading the initial snapshot so no change is missed.
func (h *FeedHub) Register() *FeedClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	c := &FeedClient{
		id:     h.nextID,
		frames: make(chan *model.Frame, h.buffer),
		done:   make(chan struct{}),
	}
	h.clients[c.id] = c
	return c
}

// Unregister removes a stream
func (h *FeedHub) Unregister(c *FeedClient) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
}

// ClientCount returns the number of connected streams
func (h *FeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Initial builds the full-state frame a new stream starts with
func (h *FeedHub) Initial(ctx context.Context) (*model.Frame, error) {
	sessions, err := h.sessions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return model.InitialFrame(sessions), nil
}

// HandleChange resolves one change event into a frame and broadcasts it
func (h *FeedHub) HandleChange(event model.ChangeEvent) {
	h.mu.RLock()
	parent := h.ctx
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	frame, err := h.frameFor(ctx, event)
	if err != nil {
		logger.WarnCtx(ctx, "failed to resolve change of session %s: %v", event.SessionID, err)
		h.Broadcast(model.ErrorFrame("failed to load session change"))
		return
	}
	h.Broadcast(frame)
}

func (h *FeedHub) frameFor(ctx context.Context, event model.ChangeEvent) (*model.Frame, error) {
	if event.Kind == model.ChangeDelete {
		return &model.Frame{Type: constants.FrameDelete, SessionID: event.SessionID}, nil
	}
	sess, err := h.sessions.Get(ctx, event.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &model.Frame{Type: constants.FrameDelete, SessionID: event.SessionID}, nil
	}
	return &model.Frame{Type: string(event.Kind), Session: sess}, nil
}

// Broadcast queues frame on every stream. A stream whose backlog is full is dropped; it has to
// reconnect and start again from a fresh initial frame.
func (h *FeedHub) Broadcast(frame *model.Frame) {
	h.mu.RLock()
	var slow []*FeedClient
	for _, c := range h.clients {
		select {
		case c.frames <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("dropping slow session stream")
		h.Unregister(c)
	}
}
