package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"floorsync/app/handler"
	"floorsync/app/router"
	"floorsync/internal/service"
	"floorsync/pkg/config"
	"floorsync/pkg/logger"
	mysqlstore "floorsync/pkg/store/mysql"
	redisstore "floorsync/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(app.config.Logger); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.InfoCtx(app.ctx, "Logging system has been closed")
		_ = logger.Sync()
	})
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	repo, err := mysqlstore.NewRepository(app.config.MySQL)
	if err != nil {
		return err
	}

	if app.config.MySQL.AutoMigrate {
		if err := repo.GetDatastore().Migrate(app.ctx); err != nil {
			repo.Close()
			return err
		}
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis
func (app *Application) initRedis() error {
	client, err := redisstore.NewRedisClient(app.config.Redis)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.changeFeed = redisstore.NewChangeFeed(client, app.config.Stream.Channel)
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	repo := app.mysqlRepo

	app.sessionService = service.NewSessionService(
		repo.Session,
		repo.StatusEvent,
		repo.StatusDefinition,
		repo.GetDatastore(),
		app.changeFeed,
	)
	app.reclaimService = service.NewReclaimService(repo.Session, app.sessionService)
	app.pipelineService = service.NewPipelineService(repo.Session, repo.Pipeline)
	app.feedHub = service.NewFeedHub(repo.Session, app.changeFeed, app.config.Stream.ClientBuffer)

	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	keepAlive := time.Duration(app.config.Stream.KeepAlive) * time.Second

	app.sessionHandler = handler.NewSessionHandler(app.sessionService)
	app.streamHandler = handler.NewStreamHandler(app.feedHub, keepAlive)
	app.pipelineHandler = handler.NewPipelineHandler(app.pipelineService, 0)
	app.reclaimHandler = handler.NewReclaimHandler(app.reclaimService)
	app.healthHandler = handler.NewHealthHandler(map[string]handler.HealthCheck{
		"mysql": app.mysqlRepo.GetDatastore().Ping,
		"redis": func(ctx context.Context) error {
			return app.redisClient.GetClient().Ping(ctx).Err()
		},
	})

	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(
		app.sessionHandler,
		app.streamHandler,
		app.pipelineHandler,
		app.reclaimHandler,
		app.healthHandler,
		app.config.Server.APIKey,
		app.config.Auth.JWTSecret,
	)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server; no write timeout because session streams stay open
	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return app.ctx },
	}

	return nil
}
