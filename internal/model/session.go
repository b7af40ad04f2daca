package model

import (
	"time"

	"floorsync/pkg/constants"
)

// Session one worker's occupancy of one station, optionally on a job item
type Session struct {
	ID                 string                  `json:"id"`
	WorkerID           string                  `json:"worker_id"`
	WorkerName         string                  `json:"worker_name,omitempty"`
	StationID          *string                 `json:"station_id"`
	StationName        string                  `json:"station_name,omitempty"`
	JobID              *string                 `json:"job_id"`
	JobNumber          string                  `json:"job_number,omitempty"`
	JobItemID          *string                 `json:"job_item_id,omitempty"`
	Status             constants.SessionStatus `json:"status"`
	CurrentStatusID    *string                 `json:"current_status_id"`
	LastStatusChangeAt *time.Time              `json:"last_status_change_at,omitempty"`
	StartedAt          time.Time               `json:"started_at"`
	LastSeenAt         time.Time               `json:"last_seen_at"`
	EndedAt            *time.Time              `json:"ended_at"`
	ForcedClosedAt     *time.Time              `json:"forced_closed_at"`
	TotalGood          int64                   `json:"total_good"`
	TotalScrap         int64                   `json:"total_scrap"`
	LastNote           string                  `json:"last_note,omitempty"`
}

// IsActive reports whether the session is still open
func (s *Session) IsActive() bool {
	return s.Status == constants.SessionStatusActive && s.EndedAt == nil
}

// IsIdle reports whether the session is an idle reclamation candidate at now
func (s *Session) IsIdle(now time.Time, threshold time.Duration) bool {
	return s.Status == constants.SessionStatusActive &&
		s.ForcedClosedAt == nil &&
		s.LastSeenAt.Before(now.Add(-threshold))
}

// Clone returns a shallow copy with its own pointer fields
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.StationID = cloneString(s.StationID)
	c.JobID = cloneString(s.JobID)
	c.JobItemID = cloneString(s.JobItemID)
	c.CurrentStatusID = cloneString(s.CurrentStatusID)
	c.LastStatusChangeAt = cloneTime(s.LastStatusChangeAt)
	c.EndedAt = cloneTime(s.EndedAt)
	c.ForcedClosedAt = cloneTime(s.ForcedClosedAt)
	return &c
}

// StartSessionRequest worker request to begin occupying a station
type StartSessionRequest struct {
	WorkerID           string  `json:"worker_id" binding:"required"`
	StationID          *string `json:"station_id,omitempty"`
	JobID              *string `json:"job_id,omitempty"`
	JobItemID          *string `json:"job_item_id,omitempty"`
	StatusDefinitionID string  `json:"status_definition_id" binding:"required"`
	Note               string  `json:"note,omitempty"`
}

// SnapshotResponse body of the snapshot-fetch endpoint
type SnapshotResponse struct {
	Sessions []*Session `json:"sessions"`
}

// StringPtr returns a pointer to v
func StringPtr(v string) *string {
	return &v
}

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time {
	return &t
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
