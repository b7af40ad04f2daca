package livestore

import (
	"time"

	"floorsync/internal/model"
	"floorsync/pkg/constants"
)

// Merge folds incoming into current.
//
// When nothing externally meaningful differs it returns current itself, so callers can detect
// "no change" by pointer comparison. Otherwise it returns a new record: incoming wins field by
// field, except that a missing display name keeps its current value while the id it names is
// unchanged, totals never move backwards, and a completed session is not reopened by a late
// active record.
func Merge(current, incoming *model.Session) *model.Session {
	if incoming == nil {
		return current
	}
	if current == nil {
		return incoming
	}
	if equalSession(current, incoming) {
		return current
	}

	merged := *incoming
	// a missing name is only carried over while it still names the same worker, station or job
	if merged.WorkerName == "" && merged.WorkerID == current.WorkerID {
		merged.WorkerName = current.WorkerName
	}
	if merged.StationName == "" && equalString(merged.StationID, current.StationID) {
		merged.StationName = current.StationName
	}
	if merged.JobNumber == "" && equalString(merged.JobID, current.JobID) {
		merged.JobNumber = current.JobNumber
	}
	if merged.TotalGood < current.TotalGood {
		merged.TotalGood = current.TotalGood
	}
	if merged.TotalScrap < current.TotalScrap {
		merged.TotalScrap = current.TotalScrap
	}
	if current.Status == constants.SessionStatusCompleted && merged.Status != constants.SessionStatusCompleted {
		merged.Status = current.Status
		merged.EndedAt = current.EndedAt
		merged.ForcedClosedAt = current.ForcedClosedAt
	}

	// the adjustments above can make incoming a pure re-delivery of current
	if equalSession(current, &merged) {
		return current
	}
	return &merged
}

func equalSession(a, b *model.Session) bool {
	return a.ID == b.ID &&
		a.WorkerID == b.WorkerID &&
		equalString(a.StationID, b.StationID) &&
		equalString(a.JobID, b.JobID) &&
		equalString(a.JobItemID, b.JobItemID) &&
		a.Status == b.Status &&
		equalString(a.CurrentStatusID, b.CurrentStatusID) &&
		a.TotalGood == b.TotalGood &&
		a.TotalScrap == b.TotalScrap &&
		a.StartedAt.Equal(b.StartedAt) &&
		a.LastSeenAt.Equal(b.LastSeenAt) &&
		equalTime(a.EndedAt, b.EndedAt) &&
		equalTime(a.ForcedClosedAt, b.ForcedClosedAt) &&
		equalTime(a.LastStatusChangeAt, b.LastStatusChangeAt) &&
		nameEqual(a.WorkerName, b.WorkerName) &&
		nameEqual(a.StationName, b.StationName) &&
		nameEqual(a.JobNumber, b.JobNumber) &&
		a.LastNote == b.LastNote
}

// nameEqual treats a missing incoming display name as unchanged.
func nameEqual(current, incoming string) bool {
	return incoming == "" || current == incoming
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
