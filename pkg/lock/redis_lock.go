// Package lock provides a Redis-backed lock so only one server replica runs a periodic sweep at a time.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"floorsync/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	DefaultTTL      = 30 * time.Second
	acquireTimeout  = 5 * time.Second
	renewInterval   = 10 * time.Second
	maxHoldDuration = 2 * time.Minute
	defaultLockKey  = "floorsync:reclaim-lock"
)

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("expire", KEYS[1], ARGV[2])
else
	return 0
end`

// DistributedLock mutual exclusion across processes
type DistributedLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	IsHeld() bool
}

// RedisLock SET NX lock with a per-holder token and background renewal
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration

	mu           sync.Mutex
	held         bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool
}

// NewRedisLock creates a lock on key. A nil client degrades to an always-acquired local lock
// for single-instance deployments.
func NewRedisLock(client *redis.Client, key string) *RedisLock {
	if key == "" {
		key = defaultLockKey
	}
	return &RedisLock{
		client:    client,
		key:       key,
		token:     uuid.NewString(),
		ttl:       DefaultTTL,
		stopRenew: make(chan struct{}),
	}
}

// TryLock attempts to take the lock without waiting for it
func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.DebugCtx(ctx, "no redis client, lock %s held locally", l.key)
		l.mu.Lock()
		l.held = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !acquired {
		logger.DebugCtx(ctx, "lock %s held by another instance", l.key)
		return false, nil
	}

	l.mu.Lock()
	l.held = true
	l.acquiredAt = time.Now()
	// fresh channel per acquisition so the lock can cycle
	l.stopRenew = make(chan struct{})
	l.renewStopped = false
	stop := l.stopRenew
	l.mu.Unlock()

	go l.renew(ctx, stop)

	logger.DebugCtx(ctx, "lock %s acquired", l.key)
	return true, nil
}

// Unlock releases the lock if this holder still owns it
func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		return nil
	}
	if l.client == nil {
		l.held = false
		l.mu.Unlock()
		return nil
	}
	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	result, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.token).Int64()

	l.mu.Lock()
	l.held = false
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if result == 0 {
		logger.WarnCtx(ctx, "lock %s had already expired or changed hands", l.key)
	}
	return nil
}

// IsHeld reports whether this holder believes it owns the lock
func (l *RedisLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *RedisLock) renew(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			held := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if held > maxHoldDuration {
				// leave the release to the owner's deferred Unlock
				logger.WarnCtx(ctx, "lock %s held for %.0fs, no longer renewing", l.key, held.Seconds())
				l.markLost()
				return
			}

			result, err := l.client.Eval(ctx, renewScript, []string{l.key}, l.token, int(l.ttl.Seconds())).Int64()
			if err != nil {
				logger.WarnCtx(ctx, "renew lock %s: %v", l.key, err)
				l.markLost()
				return
			}
			if result == 0 {
				logger.WarnCtx(ctx, "lock %s lost before renewal", l.key)
				l.markLost()
				return
			}
		}
	}
}

func (l *RedisLock) markLost() {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
}

// Do runs fn only if the lock can be taken, releasing it afterwards. It reports whether fn ran.
func Do(ctx context.Context, l DistributedLock, fn func(ctx context.Context) error) (bool, error) {
	if l == nil {
		return true, fn(ctx)
	}
	acquired, err := l.TryLock(ctx)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if err := l.Unlock(ctx); err != nil {
			logger.WarnCtx(ctx, "%v", err)
		}
	}()
	return true, fn(ctx)
}
