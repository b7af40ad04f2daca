package livestore

import (
	"testing"
	"time"

	"floorsync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	onJob := func(id, station, job, worker string, offset time.Duration, good int64) *model.Session {
		s := newSession(id, station, offset)
		s.JobID = model.StringPtr(job)
		s.JobNumber = "J-" + job
		s.WorkerName = worker
		s.TotalGood = good
		return s
	}

	sessions := map[string]*model.Session{
		"a": onJob("a", "cut", "1", "Maya", 3*time.Minute, 10),
		"b": onJob("b", "cut", "1", "Avi", 2*time.Minute, 5),
		"c": onJob("c", "weld", "1", "Noa", time.Minute, 1),
		"d": onJob("d", "cut", "2", "Maya", 0, 7),
		"e": newSession("e", "paint", -time.Minute),
	}
	ids := []string{"a", "b", "c", "d", "e"}

	summaries := Summarize(ids, sessions)
	require.Len(t, summaries, 2)

	first := summaries[0]
	assert.Equal(t, "1", first.JobID)
	assert.Equal(t, "J-1", first.JobNumber)
	assert.Equal(t, 3, first.ActiveSessions)
	assert.Equal(t, []string{"cut", "weld"}, first.StationIDs)
	assert.Equal(t, int64(16), first.TotalGood)
	require.Len(t, first.Stations, 2)
	assert.Equal(t, []string{"Avi", "Maya"}, first.Stations[0].Workers)
	assert.Equal(t, []string{"Noa"}, first.Stations[1].Workers)

	second := summaries[1]
	assert.Equal(t, "2", second.JobID)
	assert.Equal(t, 1, second.ActiveSessions)
}

func TestSummarize_WorkerIDFallback(t *testing.T) {
	s := newSession("a", "cut", 0)
	s.JobID = model.StringPtr("1")
	s.WorkerName = ""

	summaries := Summarize([]string{"a"}, map[string]*model.Session{"a": s})
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"w-a"}, summaries[0].Stations[0].Workers)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Empty(t, Summarize(nil, map[string]*model.Session{}))
}
