package service

import (
	"context"
	"fmt"

	"floorsync/internal/model"
	"floorsync/internal/pipeline"
)

// PipelineService loads job item routes and computes their progress
type PipelineService struct {
	sessions sessionRepository
	repo     pipelineRepository
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(sessions sessionRepository, repo pipelineRepository) *PipelineService {
	return &PipelineService{sessions: sessions, repo: repo}
}

// Context returns the pipeline context of the job item a session is working on
func (s *PipelineService) Context(ctx context.Context, sessionID string) (*model.PipelineContext, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.JobItemID == nil {
		return nil, ErrNoJobItem
	}

	item, steps, err := s.load(ctx, *sess.JobItemID)
	if err != nil {
		return nil, err
	}
	return &model.PipelineContext{
		SessionID:       sessionID,
		JobItemID:       item.ID,
		PlannedQuantity: item.PlannedQuantity,
		Steps:           steps,
	}, nil
}

// Progress computes completion, WIP and bottleneck for a job item
func (s *PipelineService) Progress(ctx context.Context, jobItemID string) (*pipeline.Progress, error) {
	item, steps, err := s.load(ctx, jobItemID)
	if err != nil {
		return nil, err
	}
	if err := pipeline.ValidateSteps(steps); err != nil {
		return nil, fmt.Errorf("job item %s: %w", jobItemID, err)
	}
	progress := pipeline.Compute(item.PlannedQuantity, steps)
	return &progress, nil
}

func (s *PipelineService) load(ctx context.Context, jobItemID string) (*model.JobItem, []*model.PipelineStep, error) {
	item, err := s.repo.GetJobItem(ctx, jobItemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, ErrJobItemNotFound
	}
	steps, err := s.repo.ListSteps(ctx, jobItemID)
	if err != nil {
		return nil, nil, err
	}
	return item, steps, nil
}
