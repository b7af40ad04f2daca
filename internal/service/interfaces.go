package service

import (
	"context"
	"time"

	"floorsync/internal/model"
	"floorsync/pkg/store/mysql"
	redisstore "floorsync/pkg/store/redis"
)

type sessionRepository interface {
	ListActive(ctx context.Context) ([]*model.Session, error)
	ListIdle(ctx context.Context, cutoff time.Time) ([]*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Insert(ctx context.Context, session *model.Session) error
	Touch(ctx context.Context, id string, at time.Time) (bool, error)
	SetCurrentStatus(ctx context.Context, id, statusEventID string, at time.Time, note string) (bool, error)
	AddTotals(ctx context.Context, id string, good, scrap int64, at time.Time) (bool, error)
	Complete(ctx context.Context, id string, at time.Time) (bool, error)
	Reclaim(ctx context.Context, id, statusEventID string, at, idleBefore time.Time) (bool, error)
}

type statusEventRepository interface {
	CloseOpen(ctx context.Context, sessionID string, at time.Time) (int64, error)
	Create(ctx context.Context, event *model.StatusEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.StatusEvent, error)
}

type statusDefinitionRepository interface {
	Get(ctx context.Context, id string) (*model.StatusDefinition, error)
	FindStoppage(ctx context.Context) (*model.StatusDefinition, error)
	List(ctx context.Context) ([]*model.StatusDefinition, error)
}

type pipelineRepository interface {
	GetJobItem(ctx context.Context, id string) (*model.JobItem, error)
	ListSteps(ctx context.Context, jobItemID string) ([]*model.PipelineStep, error)
}

type txRunner interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type changePublisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

type changeSubscriber interface {
	Subscribe(ctx context.Context, handle func(model.ChangeEvent)) error
}

// compile-time assertions

var (
	_ sessionRepository          = (*mysql.SessionRepository)(nil)
	_ statusEventRepository      = (*mysql.StatusEventRepository)(nil)
	_ statusDefinitionRepository = (*mysql.StatusDefinitionRepository)(nil)
	_ pipelineRepository         = (*mysql.PipelineRepository)(nil)
	_ txRunner                   = (*mysql.Datastore)(nil)
	_ changePublisher            = (*redisstore.ChangeFeed)(nil)
	_ changeSubscriber           = (*redisstore.ChangeFeed)(nil)
)
