package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"floorsync/pkg/constants"

	"github.com/gorilla/websocket"
)

const maxFrameSize = 16 << 20

// HTTPTransport reads newline-delimited JSON frames from a long-lived GET
type HTTPTransport struct {
	URL    string
	Token  string
	Client *http.Client
}

// Open issues the request; 401 and 403 map to ErrUnauthorized
func (t *HTTPTransport) Open(ctx context.Context) (FrameReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", constants.ContentTypeNDJSON)
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return &lineReader{body: resp.Body, scanner: scanner}, nil
}

type lineReader struct {
	body    io.Closer
	scanner *bufio.Scanner
}

func (r *lineReader) Next() ([]byte, error) {
	if r.scanner.Scan() {
		return r.scanner.Bytes(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return nil, io.EOF
}

func (r *lineReader) Close() error {
	return r.body.Close()
}

// WebSocketTransport reads one frame per text message
type WebSocketTransport struct {
	URL    string
	Token  string
	Dialer *websocket.Dialer
}

// Open dials the socket; a refused upgrade with 401 or 403 maps to ErrUnauthorized
func (t *WebSocketTransport) Open(ctx context.Context) (FrameReader, error) {
	header := http.Header{}
	if t.Token != "" {
		header.Set("Authorization", "Bearer "+t.Token)
	}
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, t.URL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if statusErr := checkStatus(resp.StatusCode); statusErr != nil {
				return nil, statusErr
			}
		}
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	r := &wsReader{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-r.done:
		}
	}()
	return r, nil
}

type wsReader struct {
	conn *websocket.Conn
	done chan struct{}
}

func (r *wsReader) Next() ([]byte, error) {
	for {
		msgType, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read stream: %w", err)
		}
		if msgType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (r *wsReader) Close() error {
	close(r.done)
	return r.conn.Close()
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case code != http.StatusOK && code != http.StatusSwitchingProtocols:
		return fmt.Errorf("unexpected stream status %d", code)
	}
	return nil
}
