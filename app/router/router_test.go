package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floorsync/app/handler"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubSweeper struct{}

func (stubSweeper) Sweep(ctx context.Context, now time.Time) (int, error) { return 0, nil }

func TestRouter_AuthGroups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	r := NewRouter(
		handler.NewSessionHandler(nil),
		handler.NewStreamHandler(nil, 0),
		handler.NewPipelineHandler(nil, 0),
		handler.NewReclaimHandler(stubSweeper{}),
		handler.NewHealthHandler(nil),
		"station-key", "dashboard-secret",
	)
	r.Setup(engine)

	tests := []struct {
		method, path, auth string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodPost, "/api/v1/reclaim", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/reclaim", "Bearer station-key", http.StatusOK},
		{http.MethodPost, "/v1/sessions/s1/heartbeat", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/sessions/active", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/sessions/active", "Bearer station-key", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/job-items/x/progress", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/sessions/s1/events", "", http.StatusUnauthorized},
		{http.MethodGet, "/v1/status-definitions", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/sessions", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/sessions", "Bearer station-key", http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}
}
