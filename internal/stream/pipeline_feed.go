package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"floorsync/internal/livestore"
	"floorsync/internal/model"
	"floorsync/internal/pipeline"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"
)

// PipelineFeed holds the latest pipeline context of one session and its computed progress
type PipelineFeed struct {
	mu       sync.RWMutex
	context  *model.PipelineContext
	progress pipeline.Progress
	state    livestore.ConnectionState
	lastErr  string
	onChange func(*model.PipelineContext, pipeline.Progress)
}

// NewPipelineFeed creates an empty feed; onChange may be nil
func NewPipelineFeed(onChange func(*model.PipelineContext, pipeline.Progress)) *PipelineFeed {
	return &PipelineFeed{state: livestore.StateConnecting, onChange: onChange}
}

// HandleFrame implements FrameHandler
func (f *PipelineFeed) HandleFrame(ctx context.Context, data []byte) error {
	var frame model.PipelineFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("decode pipeline frame: %w", err)
	}

	switch frame.Type {
	case constants.FrameInitial, constants.FrameUpdate:
		if frame.Context == nil {
			return fmt.Errorf("%s frame without context", frame.Type)
		}
		progress := pipeline.Compute(frame.Context.PlannedQuantity, frame.Context.Steps)

		f.mu.Lock()
		f.context = frame.Context
		f.progress = progress
		onChange := f.onChange
		f.mu.Unlock()

		if onChange != nil {
			onChange(frame.Context, progress)
		}
	case constants.FrameError:
		logger.WarnCtx(ctx, "pipeline stream reported error: %s", frame.Message)
	default:
		return fmt.Errorf("unknown pipeline frame type %q", frame.Type)
	}
	return nil
}

// Latest returns the most recent context and progress, if any frame arrived yet
func (f *PipelineFeed) Latest() (*model.PipelineContext, pipeline.Progress, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.context, f.progress, f.context != nil
}

// SetConnectionState records the stream state
func (f *PipelineFeed) SetConnectionState(state livestore.ConnectionState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.lastErr = ""
	if err != nil {
		f.lastErr = err.Error()
	}
}

// ConnectionState returns the stream state and last error message
func (f *PipelineFeed) ConnectionState() (livestore.ConnectionState, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state, f.lastErr
}

// NewPipelineClient wires a client following the pipeline context of sessionID. There is no
// polling fallback; after the retry budget the feed ends in the error state.
func NewPipelineClient(feed *PipelineFeed, sessionID string, cfg Config) *Client {
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/pipeline/stream"
	return NewClient(Options{
		Name:        "pipeline:" + sessionID,
		Transport:   &HTTPTransport{URL: cfg.url(path), Token: cfg.Token, Client: cfg.HTTPClient},
		Handler:     feed,
		OnState:     feed.SetConnectionState,
		Token:       cfg.Token,
		RequireAuth: cfg.RequireAuth,
	})
}
