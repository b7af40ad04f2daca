package mysql

import (
	"context"
	"fmt"
	"time"

	domain "floorsync/internal/model"
	"floorsync/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusEventRepository handles status event persistence in MySQL
type StatusEventRepository struct {
	ds *Datastore
}

// NewStatusEventRepository creates a new status event repository
func NewStatusEventRepository(ds *Datastore) *StatusEventRepository {
	return &StatusEventRepository{ds: ds}
}

// CloseOpen ends the session's open event at at, returning how many were closed
func (r *StatusEventRepository) CloseOpen(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	result := r.ds.DB(ctx).
		Model(&StatusEvent{}).
		Where("session_id = ? AND ended_at IS NULL", sessionID).
		Update("ended_at", at)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close open status event: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Create inserts an event, assigning an id when it has none
func (r *StatusEventRepository) Create(ctx context.Context, event *domain.StatusEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := r.ds.DB(ctx).Create(FromStatusEventDomain(event)).Error; err != nil {
		return fmt.Errorf("failed to create status event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events in time order
func (r *StatusEventRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.StatusEvent, error) {
	var events []*StatusEvent
	err := r.ds.DB(ctx).
		Where("session_id = ?", sessionID).
		Order("started_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list status events: %w", err)
	}
	out := make([]*domain.StatusEvent, 0, len(events))
	for _, e := range events {
		out = append(out, ToStatusEventDomain(e))
	}
	return out, nil
}

// StatusDefinitionRepository reads status definitions
type StatusDefinitionRepository struct {
	ds *Datastore
}

// NewStatusDefinitionRepository creates a new status definition repository
func NewStatusDefinitionRepository(ds *Datastore) *StatusDefinitionRepository {
	return &StatusDefinitionRepository{ds: ds}
}

// Get returns one definition, or nil
func (r *StatusDefinitionRepository) Get(ctx context.Context, id string) (*domain.StatusDefinition, error) {
	var def StatusDefinition
	err := r.ds.DB(ctx).Where("id = ?", id).First(&def).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get status definition: %w", err)
	}
	return ToStatusDefinitionDomain(&def), nil
}

// List returns every definition, oldest first
func (r *StatusDefinitionRepository) List(ctx context.Context) ([]*domain.StatusDefinition, error) {
	var defs []*StatusDefinition
	if err := r.ds.DB(ctx).Order("created_at ASC, id ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to list status definitions: %w", err)
	}
	out := make([]*domain.StatusDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, ToStatusDefinitionDomain(d))
	}
	return out, nil
}

// FindStoppage returns the oldest definition tagged as a stoppage, falling back to the oldest
// definition of any kind. It returns nil when no definitions exist.
func (r *StatusDefinitionRepository) FindStoppage(ctx context.Context) (*domain.StatusDefinition, error) {
	var def StatusDefinition
	err := r.ds.DB(ctx).
		Where("kind = ?", string(constants.StatusKindStoppage)).
		Order("created_at ASC, id ASC").
		First(&def).Error
	if err == nil {
		return ToStatusDefinitionDomain(&def), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to find stoppage status: %w", err)
	}

	err = r.ds.DB(ctx).Order("created_at ASC, id ASC").First(&def).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find fallback status: %w", err)
	}
	return ToStatusDefinitionDomain(&def), nil
}
