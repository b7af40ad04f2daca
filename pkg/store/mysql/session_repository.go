package mysql

import (
	"context"
	"fmt"
	"time"

	domain "floorsync/internal/model"
	"floorsync/pkg/constants"

	"gorm.io/gorm"
)

const sessionViewColumns = "sessions.*, " +
	"COALESCE(workers.name, '') AS worker_name, " +
	"COALESCE(stations.name, '') AS station_name, " +
	"COALESCE(jobs.job_number, '') AS job_number"

// SessionRepository handles session persistence in MySQL
type SessionRepository struct {
	ds *Datastore
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(ds *Datastore) *SessionRepository {
	return &SessionRepository{ds: ds}
}

func (r *SessionRepository) views(ctx context.Context) *gorm.DB {
	return r.ds.DB(ctx).
		Table("sessions").
		Select(sessionViewColumns).
		Joins("LEFT JOIN workers ON workers.id = sessions.worker_id").
		Joins("LEFT JOIN stations ON stations.id = sessions.station_id").
		Joins("LEFT JOIN jobs ON jobs.id = sessions.job_id")
}

func toSessions(views []*SessionView) []*domain.Session {
	out := make([]*domain.Session, 0, len(views))
	for _, v := range views {
		out = append(out, ToSessionDomain(v))
	}
	return out
}

// ListActive returns every active session with display names, newest first
func (r *SessionRepository) ListActive(ctx context.Context) ([]*domain.Session, error) {
	var views []*SessionView
	err := r.views(ctx).
		Where("sessions.status = ?", string(constants.SessionStatusActive)).
		Order("sessions.started_at DESC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return toSessions(views), nil
}

// ListIdle returns active, not force-closed sessions last seen before cutoff
func (r *SessionRepository) ListIdle(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	var views []*SessionView
	err := r.views(ctx).
		Where("sessions.status = ? AND sessions.forced_closed_at IS NULL AND sessions.last_seen_at < ?",
			string(constants.SessionStatusActive), cutoff).
		Order("sessions.last_seen_at ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	return toSessions(views), nil
}

// Get returns one session with display names, or nil if it does not exist
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	var views []*SessionView
	err := r.views(ctx).Where("sessions.id = ?", id).Limit(1).Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(views) == 0 {
		return nil, nil
	}
	return ToSessionDomain(views[0]), nil
}

// Insert creates a session row
func (r *SessionRepository) Insert(ctx context.Context, session *domain.Session) error {
	if err := r.ds.DB(ctx).Create(FromSessionDomain(session)).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// activeUpdate applies updates to an active session and reports whether a row matched
func (r *SessionRepository) activeUpdate(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = gorm.Expr("CURRENT_TIMESTAMP(3)")
	result := r.ds.DB(ctx).
		Model(&Session{}).
		Where("id = ? AND status = ?", id, string(constants.SessionStatusActive)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Touch records a heartbeat
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	ok, err := r.activeUpdate(ctx, id, map[string]interface{}{"last_seen_at": at})
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return ok, nil
}

// SetCurrentStatus points the session at a newly opened status event
func (r *SessionRepository) SetCurrentStatus(ctx context.Context, id, statusEventID string, at time.Time, note string) (bool, error) {
	ok, err := r.activeUpdate(ctx, id, map[string]interface{}{
		"current_status_id":     statusEventID,
		"last_status_change_at": at,
		"last_seen_at":          at,
		"last_note":             note,
	})
	if err != nil {
		return false, fmt.Errorf("failed to set session status: %w", err)
	}
	return ok, nil
}

// AddTotals increments produced quantities
func (r *SessionRepository) AddTotals(ctx context.Context, id string, good, scrap int64, at time.Time) (bool, error) {
	ok, err := r.activeUpdate(ctx, id, map[string]interface{}{
		"total_good":   gorm.Expr("total_good + ?", good),
		"total_scrap":  gorm.Expr("total_scrap + ?", scrap),
		"last_seen_at": at,
	})
	if err != nil {
		return false, fmt.Errorf("failed to add session totals: %w", err)
	}
	return ok, nil
}

// Complete closes an active session at the worker's request. It reports false when the session
// was no longer active.
func (r *SessionRepository) Complete(ctx context.Context, id string, at time.Time) (bool, error) {
	ok, err := r.activeUpdate(ctx, id, map[string]interface{}{
		"status":                string(constants.SessionStatusCompleted),
		"ended_at":              at,
		"last_status_change_at": at,
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete session: %w", err)
	}
	return ok, nil
}

// Reclaim force-closes a session into statusEventID. The row only matches while it is still
// active and last seen before idleBefore, so a heartbeat committed after the idle check wins.
func (r *SessionRepository) Reclaim(ctx context.Context, id, statusEventID string, at, idleBefore time.Time) (bool, error) {
	result := r.ds.DB(ctx).
		Model(&Session{}).
		Where("id = ? AND status = ? AND forced_closed_at IS NULL AND last_seen_at < ?",
			id, string(constants.SessionStatusActive), idleBefore).
		Updates(map[string]interface{}{
			"status":                string(constants.SessionStatusCompleted),
			"current_status_id":     statusEventID,
			"ended_at":              at,
			"forced_closed_at":      at,
			"last_status_change_at": at,
			"updated_at":            gorm.Expr("CURRENT_TIMESTAMP(3)"),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reclaim session: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
