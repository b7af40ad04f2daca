package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorsync/internal/livestore"
	"floorsync/internal/model"
	"floorsync/internal/pipeline"
	"floorsync/pkg/constants"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func activeSession(id string, offset time.Duration) *model.Session {
	return &model.Session{
		ID:         id,
		WorkerID:   "w-" + id,
		WorkerName: "Worker " + id,
		StationID:  model.StringPtr("st-" + id),
		Status:     constants.SessionStatusActive,
		StartedAt:  t0.Add(offset),
		LastSeenAt: t0.Add(offset),
	}
}

func frameJSON(t *testing.T, f *model.Frame) []byte {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	return data
}

func TestSessionFeed_AppliesFrames(t *testing.T) {
	store := livestore.New()
	feed := NewSessionFeed(store)
	ctx := context.Background()

	require.NoError(t, feed.HandleFrame(ctx, frameJSON(t, model.InitialFrame([]*model.Session{
		activeSession("a", 0),
		activeSession("b", time.Minute),
	}))))
	assert.Equal(t, []string{"b", "a"}, store.Aggregates().SessionIDs)

	require.NoError(t, feed.HandleFrame(ctx, frameJSON(t, &model.Frame{
		Type: constants.FrameInsert, Session: activeSession("c", 2*time.Minute),
	})))
	assert.Equal(t, 3, store.Len())

	require.NoError(t, feed.HandleFrame(ctx, frameJSON(t, &model.Frame{Type: constants.FrameDelete, SessionID: "a"})))
	_, ok := store.Get("a")
	assert.False(t, ok)

	done := activeSession("b", time.Minute)
	done.Status = constants.SessionStatusCompleted
	done.EndedAt = model.TimePtr(t0.Add(time.Hour))
	require.NoError(t, feed.HandleFrame(ctx, frameJSON(t, &model.Frame{Type: constants.FrameUpdate, Session: done})))
	assert.Equal(t, []string{"c"}, store.Aggregates().SessionIDs, "completed sessions leave the active view")

	require.NoError(t, feed.HandleFrame(ctx, frameJSON(t, model.ErrorFrame("db hiccup"))))
	assert.Equal(t, 1, store.Len(), "error frames do not touch the store")
}

func TestSessionFeed_EmptyInitialClears(t *testing.T) {
	store := livestore.New()
	store.ApplyOne(activeSession("a", 0))
	feed := NewSessionFeed(store)

	require.NoError(t, feed.HandleFrame(context.Background(), frameJSON(t, model.InitialFrame(nil))))
	assert.Equal(t, 0, store.Len())
}

func TestSessionFeed_RejectsBadFrames(t *testing.T) {
	feed := NewSessionFeed(livestore.New())
	ctx := context.Background()

	assert.Error(t, feed.HandleFrame(ctx, []byte("{not json")))
	assert.Error(t, feed.HandleFrame(ctx, []byte(`{"type":"mystery"}`)))
	assert.Error(t, feed.HandleFrame(ctx, []byte(`{"type":"update"}`)))
	assert.Error(t, feed.HandleFrame(ctx, []byte(`{"type":"delete"}`)))
}

func TestSessionClient_NDJSONEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", constants.ContentTypeNDJSON)
		enc := json.NewEncoder(w)
		_ = enc.Encode(model.InitialFrame([]*model.Session{activeSession("a", 0), activeSession("b", time.Minute)}))
		_, _ = w.Write([]byte("\n"))
		_ = enc.Encode(&model.Frame{Type: constants.FrameDelete, SessionID: "a"})
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	store := livestore.New()
	client := NewSessionClient(store, Config{BaseURL: srv.URL, Token: "tok"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool {
		ids := store.Aggregates().SessionIDs
		return len(ids) == 1 && ids[0] == "b"
	}, 2*time.Second, 10*time.Millisecond)
	state, _ := store.ConnectionState()
	assert.Equal(t, livestore.StateConnected, state)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
}

func TestSessionClient_ForbiddenSetsErrorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	store := livestore.New()
	err := NewSessionClient(store, Config{BaseURL: srv.URL}).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)

	state, msg := store.ConnectionState()
	assert.Equal(t, livestore.StateError, state)
	assert.Contains(t, msg, "403")
}

func TestSessionClient_WebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sessions/ws"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(model.InitialFrame([]*model.Session{activeSession("a", 0)}))
		_ = conn.WriteJSON(&model.Frame{Type: constants.FrameInsert, Session: activeSession("b", time.Minute)})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	store := livestore.New()
	client := NewSessionClient(store, Config{BaseURL: srv.URL, WebSocket: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool { return store.Len() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"b", "a"}, store.Aggregates().SessionIDs)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
}

func TestSnapshotPoller(t *testing.T) {
	completed := activeSession("x", 0)
	completed.Status = constants.SessionStatusCompleted
	completed.EndedAt = model.TimePtr(t0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions/active", r.URL.Path)
		_ = json.NewEncoder(w).Encode(model.SnapshotResponse{
			Sessions: []*model.Session{activeSession("a", 0), completed},
		})
	}))
	defer srv.Close()

	store := livestore.New()
	poller := &SnapshotPoller{Client: &SnapshotClient{URL: srv.URL + "/api/v1/sessions/active"}, Store: store}

	require.NoError(t, poller.Poll(context.Background()))
	assert.Equal(t, []string{"a"}, store.Aggregates().SessionIDs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.Remove("a")
	assert.Error(t, poller.Poll(ctx))
	assert.Equal(t, 0, store.Len(), "cancelled polls never reach the store")
}

func TestPipelineFeed(t *testing.T) {
	var notified int
	feed := NewPipelineFeed(func(*model.PipelineContext, pipeline.Progress) { notified++ })

	_, _, ok := feed.Latest()
	assert.False(t, ok)

	frame := model.PipelineFrame{
		Type: constants.FrameInitial,
		Context: &model.PipelineContext{
			SessionID:       "s1",
			JobItemID:       "ji-1",
			PlannedQuantity: 10,
			Steps: []*model.PipelineStep{
				{ID: "p1", StationID: "cut", Position: 1, Wip: 3},
				{ID: "p2", StationID: "pack", Position: 2, IsTerminal: true, Wip: 5},
			},
		},
	}
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, feed.HandleFrame(context.Background(), data))

	pctx, progress, ok := feed.Latest()
	require.True(t, ok)
	assert.Equal(t, "ji-1", pctx.JobItemID)
	assert.Equal(t, 50, progress.CompletionPercent)
	assert.Equal(t, 0, progress.BottleneckIndex)
	assert.Equal(t, 1, notified)

	assert.Error(t, feed.HandleFrame(context.Background(), []byte(`{"type":"update"}`)))
	assert.NoError(t, feed.HandleFrame(context.Background(), []byte(`{"type":"error","message":"gone"}`)))
	assert.Equal(t, 1, notified)
}
