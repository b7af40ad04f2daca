package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	interval time.Duration
	runs     atomic.Int32
	err      error
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestManager_RunsImmediatelyAndOnInterval(t *testing.T) {
	m := NewManager(context.Background())
	job := &countingJob{name: "tick", interval: 10 * time.Millisecond}
	m.Register(job)
	m.Start()

	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Wait()
	after := job.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, job.runs.Load(), "no runs after stop")
}

func TestManager_FailingJobKeepsRunning(t *testing.T) {
	m := NewManager(context.Background())
	job := &countingJob{name: "flaky", interval: 10 * time.Millisecond, err: errors.New("boom")}
	m.Register(job)
	m.Start()
	defer func() {
		m.Stop()
		m.Wait()
	}()

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestManager_RegisterAfterStartIgnored(t *testing.T) {
	m := NewManager(context.Background())
	m.Register(&countingJob{name: "first", interval: time.Hour})
	m.Register(nil)
	m.Start()
	m.Register(&countingJob{name: "late", interval: time.Hour})

	assert.Equal(t, []string{"first"}, m.Names())
	m.Stop()
	m.Wait()
}
