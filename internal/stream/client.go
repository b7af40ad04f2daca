// Package stream keeps a dashboard connected to a server-sent frame stream. A single Client owns
// reconnection, backoff and the polling fallback; what a frame means is up to its FrameHandler.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"floorsync/internal/livestore"
	"floorsync/pkg/auth"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"
)

var (
	// ErrUnauthorized the server refused the stream (HTTP 401/403); the client does not retry
	ErrUnauthorized = errors.New("stream unauthorized")
	// ErrNotAuthenticated no usable token is held, so no connection is attempted
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRetriesExhausted reconnection gave up and there is no poller to fall back on
	ErrRetriesExhausted = errors.New("stream retries exhausted")
	errStreamClosed     = errors.New("stream closed by server")
)

// FrameReader yields raw frames from one open connection
type FrameReader interface {
	Next() ([]byte, error)
	Close() error
}

// Transport opens one connection to the frame source
type Transport interface {
	Open(ctx context.Context) (FrameReader, error)
}

// FrameHandler interprets one frame. Returned errors are logged and the connection is kept.
type FrameHandler interface {
	HandleFrame(ctx context.Context, data []byte) error
}

// Poller refreshes state without a stream once reconnection is abandoned
type Poller interface {
	Poll(ctx context.Context) error
}

// StateFunc receives connection state transitions
type StateFunc func(state livestore.ConnectionState, err error)

// Options client configuration. Zero durations and retry counts take the package defaults.
type Options struct {
	Name         string
	Transport    Transport
	Handler      FrameHandler
	Poller       Poller
	OnState      StateFunc
	Token        string
	RequireAuth  bool
	MaxRetries   int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	PollInterval time.Duration
}

// Client reconnecting stream consumer
type Client struct {
	opts     Options
	failures atomic.Int32

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewClient creates a client; nothing happens until Run
func NewClient(opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "stream"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = constants.StreamMaxRetries
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = constants.StreamBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = constants.StreamMaxBackoff
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.SnapshotPollInterval
	}
	if opts.OnState == nil {
		opts.OnState = func(livestore.ConnectionState, error) {}
	}
	return &Client{opts: opts, now: time.Now, after: time.After}
}

// BackoffDelay returns the wait before reconnect attempt number attempt (1-based), doubling from
// base and capped at max.
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 31 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// Run connects and keeps the stream alive until ctx is cancelled. It returns nil on cancellation
// and a non-nil error only for terminal conditions, which are also reported through OnState.
func (c *Client) Run(ctx context.Context) error {
	if c.opts.RequireAuth && !auth.Usable(c.opts.Token, c.now()) {
		c.opts.OnState(livestore.StateError, ErrNotAuthenticated)
		return ErrNotAuthenticated
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.opts.OnState(livestore.StateConnecting, nil)
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, ErrUnauthorized) {
			logger.ErrorCtx(ctx, "[%s] stream rejected: %v", c.opts.Name, err)
			c.opts.OnState(livestore.StateError, err)
			return err
		}

		failures := int(c.failures.Add(1))
		c.opts.OnState(livestore.StateDisconnected, err)

		if failures >= c.opts.MaxRetries {
			logger.WarnCtx(ctx, "[%s] giving up on stream after %d consecutive failures: %v",
				c.opts.Name, failures, err)
			return c.poll(ctx)
		}

		delay := BackoffDelay(failures, c.opts.BaseBackoff, c.opts.MaxBackoff)
		logger.WarnCtx(ctx, "[%s] stream failed (attempt %d), reconnecting in %s: %v",
			c.opts.Name, failures, delay, err)

		select {
		case <-ctx.Done():
			return nil
		case <-c.after(delay):
		}
	}
}

// Failures returns the current consecutive failure count
func (c *Client) Failures() int {
	return int(c.failures.Load())
}

func (c *Client) connect(ctx context.Context) error {
	reader, err := c.opts.Transport.Open(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()

	c.failures.Store(0)
	c.opts.OnState(livestore.StateConnected, nil)
	logger.InfoCtx(ctx, "[%s] stream connected", c.opts.Name)

	for {
		data, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errStreamClosed
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		if err := c.opts.Handler.HandleFrame(ctx, data); err != nil {
			logger.WarnCtx(ctx, "[%s] dropping frame: %v", c.opts.Name, err)
		}
	}
}

func (c *Client) poll(ctx context.Context) error {
	if c.opts.Poller == nil {
		c.opts.OnState(livestore.StateError, ErrRetriesExhausted)
		return ErrRetriesExhausted
	}

	pollErr := fmt.Errorf("live updates unavailable, polling every %s", c.opts.PollInterval)
	c.opts.OnState(livestore.StateDisconnected, pollErr)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := c.opts.Poller.Poll(ctx); err != nil && ctx.Err() == nil {
			if errors.Is(err, ErrUnauthorized) {
				logger.ErrorCtx(ctx, "[%s] snapshot rejected: %v", c.opts.Name, err)
				c.opts.OnState(livestore.StateError, err)
				return err
			}
			logger.WarnCtx(ctx, "[%s] snapshot poll failed: %v", c.opts.Name, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
