package livestore

import (
	"sort"

	"floorsync/internal/model"
)

// Stats running totals across all sessions in the store
type Stats struct {
	TotalGood  int64 `json:"total_good"`
	TotalScrap int64 `json:"total_scrap"`
}

// Aggregates derived views over the session map
type Aggregates struct {
	SessionIDs []string `json:"session_ids"`
	StationIDs []string `json:"station_ids"`
	Stats      Stats    `json:"stats"`
}

// Derive computes the aggregates for sessions.
//
// arrival gives each id's first-seen sequence number and breaks started_at ties. Slices of prev
// are returned unchanged when the fresh result is elementwise equal, so consumers can compare
// slice identity to skip work.
func Derive(sessions map[string]*model.Session, arrival map[string]uint64, prev Aggregates) Aggregates {
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := sessions[ids[i]], sessions[ids[j]]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		if arrival[ids[i]] != arrival[ids[j]] {
			return arrival[ids[i]] < arrival[ids[j]]
		}
		return ids[i] < ids[j]
	})

	seen := make(map[string]struct{})
	stations := make([]string, 0)
	var stats Stats
	for _, id := range ids {
		s := sessions[id]
		stats.TotalGood += s.TotalGood
		stats.TotalScrap += s.TotalScrap
		if s.StationID == nil {
			continue
		}
		if _, ok := seen[*s.StationID]; ok {
			continue
		}
		seen[*s.StationID] = struct{}{}
		stations = append(stations, *s.StationID)
	}

	return Aggregates{
		SessionIDs: reuse(prev.SessionIDs, ids),
		StationIDs: reuse(prev.StationIDs, stations),
		Stats:      stats,
	}
}

// reuse returns prev when next holds the same elements in the same order.
func reuse(prev, next []string) []string {
	if prev == nil || len(prev) != len(next) {
		return next
	}
	for i := range prev {
		if prev[i] != next[i] {
			return next
		}
	}
	return prev
}

// SameSlice reports whether a and b are the same slice instance (same backing array and length).
func SameSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}
