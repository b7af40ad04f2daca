package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"floorsync/internal/livestore"
	"floorsync/internal/model"
)

// SnapshotClient fetches the full active-session list
type SnapshotClient struct {
	URL    string
	Token  string
	Client *http.Client
}

// Fetch returns every active session the server knows of
func (c *SnapshotClient) Fetch(ctx context.Context) ([]*model.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var body model.SnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return body.Sessions, nil
}

// SnapshotPoller refreshes a store from the snapshot endpoint
type SnapshotPoller struct {
	Client *SnapshotClient
	Store  *livestore.Store
}

// Poll fetches once and replaces the store contents. Results arriving after ctx is cancelled
// are discarded.
func (p *SnapshotPoller) Poll(ctx context.Context) error {
	sessions, err := p.Client.Fetch(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.Store.ApplyBatch(activeOnly(sessions))
	return nil
}
