package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"floorsync/internal/jobs"
	"floorsync/pkg/config"
	"floorsync/pkg/lock"
	"floorsync/pkg/logger"
	queueasynq "floorsync/pkg/queue/asynq"

	"github.com/go-redis/redis/v8"
)

func (app *Application) initJobs() error {
	if app.reclaimService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}
	if !app.config.Reclaim.Enabled {
		logger.InfoCtx(app.ctx, "Idle session reclamation disabled on this replica")
		return nil
	}

	if app.config.Reclaim.Trigger == config.ReclaimTriggerAsynq {
		return app.initReclaimQueue()
	}

	// Prevent multiple replicas from sweeping simultaneously.
	// If Redis is unavailable, the lock downgrades to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	reclaimLock := lock.NewRedisLock(redisClient, "floorsync:reclaim-lock")

	manager := jobs.NewManager(app.ctx)
	interval := time.Duration(app.config.Reclaim.Interval) * time.Second
	manager.Register(newReclaimJob(interval, app.reclaimService, reclaimLock))

	app.jobsManager = manager
	return nil
}

// initReclaimQueue hands the sweep schedule to asynq instead of the in-process ticker
func (app *Application) initReclaimQueue() error {
	manager := queueasynq.NewManager(app.config.Redis, app.config.Reclaim)

	hostname, _ := os.Hostname()
	if err := manager.RegisterReclaim(app.reclaimService, hostname); err != nil {
		manager.Close()
		return err
	}

	app.queueManager = manager
	app.registerCleanup(func() {
		manager.Close()
		logger.InfoCtx(app.ctx, "Reclaim queue client has been closed")
	})
	return nil
}

// reclaimJob periodically completes sessions whose station stopped sending heartbeats.
type reclaimJob struct {
	interval        time.Duration
	sweeper         queueasynq.Sweeper
	distributedLock lock.DistributedLock
	now             func() time.Time
}

func newReclaimJob(interval time.Duration, sweeper queueasynq.Sweeper, l lock.DistributedLock) jobs.Job {
	return &reclaimJob{
		interval:        interval,
		sweeper:         sweeper,
		distributedLock: l,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (j *reclaimJob) Name() string {
	return "session-reclaim"
}

func (j *reclaimJob) Interval() time.Duration {
	return j.interval
}

func (j *reclaimJob) Run(ctx context.Context) error {
	if j.sweeper == nil {
		return fmt.Errorf("reclaim service not configured")
	}

	ran, err := lock.Do(ctx, j.distributedLock, func(ctx context.Context) error {
		closed, err := j.sweeper.Sweep(ctx, j.now())
		if err != nil {
			return err
		}
		if closed > 0 {
			logger.InfoCtx(ctx, "reclaimed %d idle sessions", closed)
		}
		return nil
	})
	if !ran && err == nil {
		logger.DebugCtx(ctx, "another instance is running the reclaim sweep, skipping this cycle")
	}
	return err
}
