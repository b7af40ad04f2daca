package router

import (
	"floorsync/app/handler"
	"floorsync/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	sessionHandler  *handler.SessionHandler
	streamHandler   *handler.StreamHandler
	pipelineHandler *handler.PipelineHandler
	reclaimHandler  *handler.ReclaimHandler
	healthHandler   *handler.HealthHandler

	apiKey    string
	jwtSecret string
}

// NewRouter creates a new Router
func NewRouter(sessionHandler *handler.SessionHandler, streamHandler *handler.StreamHandler, pipelineHandler *handler.PipelineHandler,
	reclaimHandler *handler.ReclaimHandler, healthHandler *handler.HealthHandler, apiKey, jwtSecret string) *Router {
	return &Router{
		sessionHandler:  sessionHandler,
		streamHandler:   streamHandler,
		pipelineHandler: pipelineHandler,
		reclaimHandler:  reclaimHandler,
		healthHandler:   healthHandler,
		apiKey:          apiKey,
		jwtSecret:       jwtSecret,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	// V1 API - worker station actions
	v1 := engine.Group("/v1")
	v1.Use(middleware.APIKeyAuth(r.apiKey))
	{
		v1.GET("/status-definitions", r.sessionHandler.StatusDefinitions)
		v1.POST("/sessions", r.sessionHandler.Start)

		sessions := v1.Group("/sessions/:id")
		{
			sessions.POST("/heartbeat", r.sessionHandler.Heartbeat)
			sessions.POST("/status", r.sessionHandler.ChangeStatus)
			sessions.POST("/quantity", r.sessionHandler.ReportQuantity)
			sessions.POST("/end", r.sessionHandler.End)
		}
	}

	api := engine.Group("/api/v1")
	{
		// Dashboard reads and streams
		dashboard := api.Group("")
		dashboard.Use(middleware.DashboardAuth(r.jwtSecret))
		{
			dashboard.GET("/sessions/active", r.sessionHandler.Active)
			dashboard.GET("/sessions/stream", r.streamHandler.Stream)
			dashboard.GET("/sessions/ws", r.streamHandler.WebSocket)
			dashboard.GET("/sessions/:id/events", r.sessionHandler.History)
			dashboard.GET("/sessions/:id/pipeline/stream", r.pipelineHandler.Stream)
			dashboard.GET("/job-items/:id/progress", r.pipelineHandler.Progress)
		}

		// Sweep trigger for schedulers outside the server
		api.POST("/reclaim", middleware.APIKeyAuth(r.apiKey), r.reclaimHandler.Reclaim)
	}

	// Health check
	engine.GET("/health", r.healthHandler.Health)
}
