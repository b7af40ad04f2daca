package mysql

import (
	"context"
	"fmt"

	domain "floorsync/internal/model"

	"gorm.io/gorm"
)

// PipelineRepository reads job items, their routes and WIP balances
type PipelineRepository struct {
	ds *Datastore
}

// NewPipelineRepository creates a new pipeline repository
func NewPipelineRepository(ds *Datastore) *PipelineRepository {
	return &PipelineRepository{ds: ds}
}

// GetJobItem returns one job item, or nil
func (r *PipelineRepository) GetJobItem(ctx context.Context, id string) (*domain.JobItem, error) {
	var item JobItem
	err := r.ds.DB(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job item: %w", err)
	}
	return ToJobItemDomain(&item), nil
}

// ListSteps returns a job item's route in position order with station names and WIP balances
func (r *PipelineRepository) ListSteps(ctx context.Context, jobItemID string) ([]*domain.PipelineStep, error) {
	var views []*PipelineStepView
	err := r.ds.DB(ctx).
		Table("pipeline_steps").
		Select("pipeline_steps.*, COALESCE(stations.name, '') AS station_name, "+
			"COALESCE(wip_balances.good_available, 0) AS wip").
		Joins("LEFT JOIN stations ON stations.id = pipeline_steps.station_id").
		Joins("LEFT JOIN wip_balances ON wip_balances.job_item_id = pipeline_steps.job_item_id "+
			"AND wip_balances.step_id = pipeline_steps.id").
		Where("pipeline_steps.job_item_id = ?", jobItemID).
		Order("pipeline_steps.position ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline steps: %w", err)
	}
	out := make([]*domain.PipelineStep, 0, len(views))
	for _, v := range views {
		out = append(out, ToPipelineStepDomain(v))
	}
	return out, nil
}
