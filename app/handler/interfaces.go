package handler

import (
	"context"
	"time"

	"floorsync/internal/model"
	"floorsync/internal/pipeline"
	"floorsync/internal/service"
)

type sessionActions interface {
	ActiveSessions(ctx context.Context) ([]*model.Session, error)
	Start(ctx context.Context, req *model.StartSessionRequest) (*model.Session, error)
	Heartbeat(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id string, req *model.StatusChangeRequest) (*model.StatusEvent, error)
	ReportQuantity(ctx context.Context, id string, report *model.QuantityReport) error
	End(ctx context.Context, id string) error
	History(ctx context.Context, id string) ([]*model.StatusEvent, error)
	StatusDefinitions(ctx context.Context) ([]*model.StatusDefinition, error)
}

type sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type pipelineReader interface {
	Context(ctx context.Context, sessionID string) (*model.PipelineContext, error)
	Progress(ctx context.Context, jobItemID string) (*pipeline.Progress, error)
}

type sessionFeed interface {
	Register() *service.FeedClient
	Unregister(c *service.FeedClient)
	Initial(ctx context.Context) (*model.Frame, error)
}

// compile-time assertions

var (
	_ sessionActions = (*service.SessionService)(nil)
	_ sweeper        = (*service.ReclaimService)(nil)
	_ pipelineReader = (*service.PipelineService)(nil)
	_ sessionFeed    = (*service.FeedHub)(nil)
)
