// Package asynq schedules the idle reclamation sweep on an asynq worker fleet.
package asynq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"floorsync/pkg/config"
	"floorsync/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeSessionReclaim = "session:reclaim"
	reclaimQueue       = "default"
)

// Sweeper runs one reclamation pass
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// ReclaimPayload body of a reclaim task
type ReclaimPayload struct {
	ScheduledBy string `json:"scheduled_by"`
}

// Manager queue manager
type Manager struct {
	client    *asynq.Client
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	cron      string
	unique    time.Duration
}

// NewManager creates queue manager
func NewManager(redisCfg config.RedisConfig, reclaimCfg config.ReclaimConfig) *Manager {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				reclaimQueue: 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Second
			},
		},
	)

	unique := time.Duration(reclaimCfg.Interval) * time.Second
	if unique <= 0 {
		unique = time.Minute
	}

	return &Manager{
		client:    asynq.NewClient(redisOpt),
		server:    server,
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC}),
		mux:       asynq.NewServeMux(),
		cron:      reclaimCfg.Cron,
		unique:    unique,
	}
}

// NewReclaimTask builds the periodic reclaim task
func NewReclaimTask(scheduledBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReclaimPayload{ScheduledBy: scheduledBy})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reclaim payload: %w", err)
	}
	return asynq.NewTask(TypeSessionReclaim, payload), nil
}

// ReclaimHandler runs a sweep per task. Sweep failures are returned so asynq records them.
func ReclaimHandler(sweeper Sweeper) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload ReclaimPayload
		if len(task.Payload()) > 0 {
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				return fmt.Errorf("invalid reclaim payload: %v: %w", err, asynq.SkipRetry)
			}
		}
		closed, err := sweeper.Sweep(ctx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("reclaim sweep failed: %w", err)
		}
		logger.InfoCtx(ctx, "asynq reclaim task (%s) closed %d sessions", payload.ScheduledBy, closed)
		return nil
	}
}

// RegisterReclaim wires the reclaim handler and its cron entry
func (m *Manager) RegisterReclaim(sweeper Sweeper, scheduledBy string) error {
	m.mux.Handle(TypeSessionReclaim, ReclaimHandler(sweeper))

	task, err := NewReclaimTask(scheduledBy)
	if err != nil {
		return err
	}
	entryID, err := m.scheduler.Register(m.cron, task,
		asynq.Queue(reclaimQueue),
		asynq.MaxRetry(0),
		asynq.Unique(m.unique),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reclaim (%s): %w", m.cron, err)
	}
	logger.InfoCtx(context.Background(), "reclaim scheduled on asynq, cron: %s, entry: %s", m.cron, entryID)
	return nil
}

// EnqueueReclaim requests one sweep now
func (m *Manager) EnqueueReclaim(ctx context.Context, requestedBy string) error {
	task, err := NewReclaimTask(requestedBy)
	if err != nil {
		return err
	}
	info, err := m.client.EnqueueContext(ctx, task, asynq.Queue(reclaimQueue), asynq.MaxRetry(0), asynq.Unique(m.unique))
	if err != nil {
		return fmt.Errorf("failed to enqueue reclaim: %w", err)
	}
	logger.InfoCtx(ctx, "reclaim enqueued, task_id: %s", info.ID)
	return nil
}

// Start starts the queue processor and the scheduler
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting reclaim queue server")
	if err := m.server.Start(m.mux); err != nil {
		return fmt.Errorf("failed to start queue server: %w", err)
	}
	if err := m.scheduler.Start(); err != nil {
		m.server.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Stop stops the scheduler and the queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping reclaim queue server")
	m.scheduler.Shutdown()
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}
