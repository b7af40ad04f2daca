package livestore

import (
	"sort"

	"floorsync/internal/model"
)

// StationPresence workers currently at one station on a job
type StationPresence struct {
	StationID   string   `json:"station_id"`
	StationName string   `json:"station_name,omitempty"`
	Workers     []string `json:"workers"`
}

// JobSummary live view of one job across all of its active sessions
type JobSummary struct {
	JobID          string            `json:"job_id"`
	JobNumber      string            `json:"job_number,omitempty"`
	ActiveSessions int               `json:"active_sessions"`
	StationIDs     []string          `json:"station_ids"`
	Stations       []StationPresence `json:"stations"`
	TotalGood      int64             `json:"total_good"`
	TotalScrap     int64             `json:"total_scrap"`
}

// Summarize groups sessions by job, in the order jobs first appear in sessionIDs.
// Sessions without a job are skipped. Worker names per station are sorted and deduplicated.
func Summarize(sessionIDs []string, sessions map[string]*model.Session) []JobSummary {
	type stationAcc struct {
		name    string
		workers map[string]struct{}
	}
	type jobAcc struct {
		summary  JobSummary
		stations map[string]*stationAcc
		order    []string
	}

	jobs := make(map[string]*jobAcc)
	jobOrder := make([]string, 0)

	for _, id := range sessionIDs {
		s, ok := sessions[id]
		if !ok || s.JobID == nil {
			continue
		}
		acc, ok := jobs[*s.JobID]
		if !ok {
			acc = &jobAcc{
				summary:  JobSummary{JobID: *s.JobID},
				stations: make(map[string]*stationAcc),
			}
			jobs[*s.JobID] = acc
			jobOrder = append(jobOrder, *s.JobID)
		}
		if acc.summary.JobNumber == "" {
			acc.summary.JobNumber = s.JobNumber
		}
		acc.summary.ActiveSessions++
		acc.summary.TotalGood += s.TotalGood
		acc.summary.TotalScrap += s.TotalScrap

		if s.StationID == nil {
			continue
		}
		st, ok := acc.stations[*s.StationID]
		if !ok {
			st = &stationAcc{name: s.StationName, workers: make(map[string]struct{})}
			acc.stations[*s.StationID] = st
			acc.order = append(acc.order, *s.StationID)
		}
		name := s.WorkerName
		if name == "" {
			name = s.WorkerID
		}
		st.workers[name] = struct{}{}
	}

	out := make([]JobSummary, 0, len(jobOrder))
	for _, jobID := range jobOrder {
		acc := jobs[jobID]
		acc.summary.StationIDs = append([]string{}, acc.order...)
		acc.summary.Stations = make([]StationPresence, 0, len(acc.order))
		for _, stationID := range acc.order {
			st := acc.stations[stationID]
			workers := make([]string, 0, len(st.workers))
			for w := range st.workers {
				workers = append(workers, w)
			}
			sort.Strings(workers)
			acc.summary.Stations = append(acc.summary.Stations, StationPresence{
				StationID:   stationID,
				StationName: st.name,
				Workers:     workers,
			})
		}
		out = append(out, acc.summary)
	}
	return out
}
