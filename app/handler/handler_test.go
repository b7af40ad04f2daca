package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"floorsync/internal/model"
	"floorsync/internal/pipeline"
	"floorsync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions struct {
	active    []*model.Session
	err       error
	calls     []string
	lastReq   *model.StatusChangeRequest
	lastQty   *model.QuantityReport
	lastStart *model.StartSessionRequest
	activeFn  func() ([]*model.Session, error)
}

func (f *fakeSessions) ActiveSessions(ctx context.Context) ([]*model.Session, error) {
	if f.activeFn != nil {
		return f.activeFn()
	}
	return f.active, f.err
}

func (f *fakeSessions) Start(ctx context.Context, req *model.StartSessionRequest) (*model.Session, error) {
	f.calls = append(f.calls, "start:"+req.WorkerID)
	f.lastStart = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.Session{ID: "s-new", WorkerID: req.WorkerID, StationID: req.StationID}, nil
}

func (f *fakeSessions) Heartbeat(ctx context.Context, id string) error {
	f.calls = append(f.calls, "heartbeat:"+id)
	return f.err
}

func (f *fakeSessions) ChangeStatus(ctx context.Context, id string, req *model.StatusChangeRequest) (*model.StatusEvent, error) {
	f.calls = append(f.calls, "status:"+id)
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.StatusEvent{ID: "ev-1", SessionID: id, StatusDefinitionID: req.StatusDefinitionID}, nil
}

func (f *fakeSessions) ReportQuantity(ctx context.Context, id string, report *model.QuantityReport) error {
	f.calls = append(f.calls, "quantity:"+id)
	f.lastQty = report
	return f.err
}

func (f *fakeSessions) End(ctx context.Context, id string) error {
	f.calls = append(f.calls, "end:"+id)
	return f.err
}

func (f *fakeSessions) History(ctx context.Context, id string) ([]*model.StatusEvent, error) {
	f.calls = append(f.calls, "history:"+id)
	if f.err != nil {
		return nil, f.err
	}
	return []*model.StatusEvent{{ID: "ev-1", SessionID: id}}, nil
}

func (f *fakeSessions) StatusDefinitions(ctx context.Context) ([]*model.StatusDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*model.StatusDefinition{{ID: "def-1", Label: "Production"}}, nil
}

type fakeSweeper struct {
	closed int
	err    error
	at     time.Time
}

func (f *fakeSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	f.at = now
	return f.closed, f.err
}

func perform(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func sessionEngine(f *fakeSessions) *gin.Engine {
	h := NewSessionHandler(f)
	engine := gin.New()
	engine.GET("/api/v1/sessions/active", h.Active)
	engine.POST("/v1/sessions", h.Start)
	engine.POST("/v1/sessions/:id/heartbeat", h.Heartbeat)
	engine.POST("/v1/sessions/:id/status", h.ChangeStatus)
	engine.POST("/v1/sessions/:id/quantity", h.ReportQuantity)
	engine.POST("/v1/sessions/:id/end", h.End)
	engine.GET("/v1/status-definitions", h.StatusDefinitions)
	engine.GET("/api/v1/sessions/:id/events", h.History)
	return engine
}

func TestSessionHandler_Active(t *testing.T) {
	f := &fakeSessions{active: []*model.Session{{ID: "a", WorkerID: "w1"}}}
	w := perform(sessionEngine(f), http.MethodGet, "/api/v1/sessions/active", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.SnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "a", resp.Sessions[0].ID)
}

func TestSessionHandler_Actions(t *testing.T) {
	f := &fakeSessions{}
	engine := sessionEngine(f)

	assert.Equal(t, http.StatusOK, perform(engine, http.MethodPost, "/v1/sessions/s1/heartbeat", "").Code)

	w := perform(engine, http.MethodPost, "/v1/sessions/s1/status", `{"status_definition_id":"def-2","reason":"tool change"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "def-2", f.lastReq.StatusDefinitionID)
	assert.Equal(t, "tool change", f.lastReq.Reason)

	require.Equal(t, http.StatusOK, perform(engine, http.MethodPost, "/v1/sessions/s1/quantity", `{"good":4,"scrap":1}`).Code)
	assert.Equal(t, &model.QuantityReport{Good: 4, Scrap: 1}, f.lastQty)

	assert.Equal(t, http.StatusOK, perform(engine, http.MethodPost, "/v1/sessions/s1/end", "").Code)
	assert.Equal(t, []string{"heartbeat:s1", "status:s1", "quantity:s1", "end:s1"}, f.calls)
}

func TestSessionHandler_Start(t *testing.T) {
	f := &fakeSessions{}
	engine := sessionEngine(f)

	w := perform(engine, http.MethodPost, "/v1/sessions", `{"worker_id":"w-1","station_id":"st-1","status_definition_id":"def-1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, "s-new", sess.ID)
	require.NotNil(t, f.lastStart.StationID)
	assert.Equal(t, "st-1", *f.lastStart.StationID)
	assert.Equal(t, "def-1", f.lastStart.StatusDefinitionID)

	assert.Equal(t, http.StatusBadRequest, perform(engine, http.MethodPost, "/v1/sessions", `{"worker_id":"w-1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, perform(engine, http.MethodPost, "/v1/sessions", `{"status_definition_id":"def-1"}`).Code)

	w = perform(sessionEngine(&fakeSessions{err: service.ErrUnknownStatus}), http.MethodPost, "/v1/sessions",
		`{"worker_id":"w-1","status_definition_id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Reads(t *testing.T) {
	engine := sessionEngine(&fakeSessions{})

	w := perform(engine, http.MethodGet, "/api/v1/sessions/s1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Events []*model.StatusEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Events, 1)
	assert.Equal(t, "s1", history.Events[0].SessionID)

	w = perform(engine, http.MethodGet, "/v1/status-definitions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"def-1"`)

	w = perform(sessionEngine(&fakeSessions{err: service.ErrSessionNotFound}), http.MethodGet, "/api/v1/sessions/s1/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_StatusRequiresDefinition(t *testing.T) {
	f := &fakeSessions{}
	w := perform(sessionEngine(f), http.MethodPost, "/v1/sessions/s1/status", `{"note":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.calls)
}

func TestSessionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.ErrSessionNotFound, http.StatusNotFound},
		{"closed", service.ErrSessionClosed, http.StatusConflict},
		{"wrapped closed", errors.Join(errors.New("tx"), service.ErrSessionClosed), http.StatusConflict},
		{"unknown status", service.ErrUnknownStatus, http.StatusBadRequest},
		{"bad quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"no definitions", service.ErrNoStatusDefinition, http.StatusUnprocessableEntity},
		{"database", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(sessionEngine(&fakeSessions{err: tt.err}), http.MethodPost, "/v1/sessions/s1/heartbeat", "")
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func TestReclaimHandler(t *testing.T) {
	sw := &fakeSweeper{closed: 3}
	engine := gin.New()
	engine.POST("/api/v1/reclaim", NewReclaimHandler(sw).Reclaim)

	w := perform(engine, http.MethodPost, "/api/v1/reclaim", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"closed":3}`, w.Body.String())
	assert.False(t, sw.at.IsZero())
}

func TestReclaimHandler_FetchFailed(t *testing.T) {
	engine := gin.New()
	engine.POST("/api/v1/reclaim", NewReclaimHandler(&fakeSweeper{err: service.ErrFetchFailed}).Reclaim)

	w := perform(engine, http.MethodPost, "/api/v1/reclaim", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"FETCH_FAILED"}`, w.Body.String())
}

func TestHealthHandler(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("down") }

	engine := gin.New()
	engine.GET("/health", NewHealthHandler(map[string]HealthCheck{"mysql": ok}).Health)
	engine.GET("/degraded", NewHealthHandler(map[string]HealthCheck{"mysql": ok, "redis": down}).Health)

	assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/health", "").Code)

	w := perform(engine, http.MethodGet, "/degraded", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
}

func TestStatusFor_PipelineErrors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrJobItemNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrNoJobItem))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(pipeline.ErrInvalidSteps))
}
