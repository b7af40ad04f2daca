package service

import (
	"context"
	"fmt"
	"time"

	"floorsync/pkg/constants"
	"floorsync/pkg/logger"
)

// ReclaimService closes sessions whose workers stopped sending heartbeats
type ReclaimService struct {
	sessions  sessionRepository
	lifecycle *SessionService
	threshold time.Duration
}

// NewReclaimService creates a sweep over sessions, closing them through lifecycle
func NewReclaimService(sessions sessionRepository, lifecycle *SessionService) *ReclaimService {
	return &ReclaimService{
		sessions:  sessions,
		lifecycle: lifecycle,
		threshold: constants.IdleThreshold,
	}
}

// Sweep force-closes every active session last seen more than the idle threshold before now.
// Sessions are handled one at a time, each in its own transaction; a failure on one is logged
// and the sweep moves on. Only a failure to enumerate candidates is returned, wrapping
// ErrFetchFailed.
func (r *ReclaimService) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-r.threshold)
	idle, err := r.sessions.ListIdle(ctx, cutoff)
	if err != nil {
		logger.ErrorCtx(ctx, "reclaim sweep could not list idle sessions: %v", err)
		return 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if len(idle) == 0 {
		return 0, nil
	}

	closed := 0
	for _, sess := range idle {
		if ctx.Err() != nil {
			break
		}
		ok, err := r.lifecycle.ForceClose(ctx, sess.ID, now, cutoff, constants.ReasonAutoAbandoned)
		if err != nil {
			logger.WarnCtx(ctx, "reclaim sweep skipped session %s: %v", sess.ID, err)
			continue
		}
		if ok {
			closed++
		}
	}

	logger.InfoCtx(ctx, "reclaim sweep closed %d of %d idle sessions", closed, len(idle))
	return closed, nil
}
