package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"floorsync/pkg/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls  int
	closed int
	err    error
}

func (s *countingSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.calls++
	return s.closed, s.err
}

func TestReclaimJob_RunsUnderLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sweeper := &countingSweeper{closed: 2}
	job := newReclaimJob(time.Minute, sweeper, lock.NewRedisLock(client, "test:reclaim"))

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)
	assert.False(t, mr.Exists("test:reclaim"), "lock released after the sweep")
}

func TestReclaimJob_SkipsWhenAnotherReplicaHoldsLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	other := lock.NewRedisLock(client, "test:reclaim")
	acquired, err := other.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)
	defer other.Unlock(context.Background())

	sweeper := &countingSweeper{}
	job := newReclaimJob(time.Minute, sweeper, lock.NewRedisLock(client, "test:reclaim"))

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, sweeper.calls)
}

func TestReclaimJob_ReturnsSweepError(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("FETCH_FAILED")}
	job := newReclaimJob(time.Minute, sweeper, lock.NewRedisLock(nil, ""))

	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, "session-reclaim", job.Name())
	assert.Equal(t, time.Minute, job.Interval())
}
