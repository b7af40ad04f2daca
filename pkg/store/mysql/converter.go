package mysql

import (
	domain "floorsync/internal/model"
	"floorsync/pkg/constants"
)

// ToSessionDomain converts a joined session row to the domain Session
func ToSessionDomain(v *SessionView) *domain.Session {
	if v == nil {
		return nil
	}
	return &domain.Session{
		ID:                 v.ID,
		WorkerID:           v.WorkerID,
		WorkerName:         v.WorkerName,
		StationID:          v.StationID,
		StationName:        v.StationName,
		JobID:              v.JobID,
		JobNumber:          v.JobNumber,
		JobItemID:          v.JobItemID,
		Status:             constants.SessionStatus(v.Status),
		CurrentStatusID:    v.CurrentStatusID,
		LastStatusChangeAt: v.LastStatusChangeAt,
		StartedAt:          v.StartedAt,
		LastSeenAt:         v.LastSeenAt,
		EndedAt:            v.EndedAt,
		ForcedClosedAt:     v.ForcedClosedAt,
		TotalGood:          v.TotalGood,
		TotalScrap:         v.TotalScrap,
		LastNote:           v.LastNote,
	}
}

// FromSessionDomain converts a domain session to its row. Display names are not stored.
func FromSessionDomain(s *domain.Session) *Session {
	if s == nil {
		return nil
	}
	return &Session{
		ID:                 s.ID,
		WorkerID:           s.WorkerID,
		StationID:          s.StationID,
		JobID:              s.JobID,
		JobItemID:          s.JobItemID,
		Status:             string(s.Status),
		CurrentStatusID:    s.CurrentStatusID,
		LastStatusChangeAt: s.LastStatusChangeAt,
		StartedAt:          s.StartedAt,
		LastSeenAt:         s.LastSeenAt,
		EndedAt:            s.EndedAt,
		ForcedClosedAt:     s.ForcedClosedAt,
		TotalGood:          s.TotalGood,
		TotalScrap:         s.TotalScrap,
		LastNote:           s.LastNote,
	}
}

// ToStatusDefinitionDomain converts a status definition row
func ToStatusDefinitionDomain(d *StatusDefinition) *domain.StatusDefinition {
	if d == nil {
		return nil
	}
	return &domain.StatusDefinition{
		ID:        d.ID,
		Label:     d.Label,
		Kind:      constants.StatusKind(d.Kind),
		CreatedAt: d.CreatedAt,
	}
}

// ToStatusEventDomain converts a status event row
func ToStatusEventDomain(e *StatusEvent) *domain.StatusEvent {
	if e == nil {
		return nil
	}
	out := &domain.StatusEvent{
		ID:                 e.ID,
		SessionID:          e.SessionID,
		StatusDefinitionID: e.StatusDefinitionID,
		StartedAt:          e.StartedAt,
		EndedAt:            e.EndedAt,
		Note:               e.Note,
	}
	if e.Reason != nil {
		out.Reason = *e.Reason
	}
	return out
}

// FromStatusEventDomain converts a domain status event to its row
func FromStatusEventDomain(e *domain.StatusEvent) *StatusEvent {
	if e == nil {
		return nil
	}
	out := &StatusEvent{
		ID:                 e.ID,
		SessionID:          e.SessionID,
		StatusDefinitionID: e.StatusDefinitionID,
		StartedAt:          e.StartedAt,
		EndedAt:            e.EndedAt,
		Note:               e.Note,
	}
	if e.Reason != "" {
		reason := e.Reason
		out.Reason = &reason
	}
	return out
}

// ToPipelineStepDomain converts a joined step row
func ToPipelineStepDomain(v *PipelineStepView) *domain.PipelineStep {
	if v == nil {
		return nil
	}
	return &domain.PipelineStep{
		ID:                   v.ID,
		JobItemID:            v.JobItemID,
		StationID:            v.StationID,
		StationName:          v.StationName,
		Position:             v.Position,
		IsTerminal:           v.IsTerminal,
		RequiresFirstArticle: v.RequiresFirstArticle,
		Wip:                  v.Wip,
	}
}

// ToJobItemDomain converts a job item row
func ToJobItemDomain(j *JobItem) *domain.JobItem {
	if j == nil {
		return nil
	}
	return &domain.JobItem{ID: j.ID, JobID: j.JobID, PlannedQuantity: j.PlannedQuantity}
}
