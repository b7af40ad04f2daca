package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"floorsync/internal/model"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"

	"github.com/google/uuid"
)

// SessionService drives the session lifecycle: heartbeats, status changes, quantity reports
// and completion. Every write that changes what dashboards see is announced on the change feed.
type SessionService struct {
	sessions  sessionRepository
	events    statusEventRepository
	defs      statusDefinitionRepository
	tx        txRunner
	publisher changePublisher
	now       func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(sessions sessionRepository, events statusEventRepository, defs statusDefinitionRepository,
	tx txRunner, publisher changePublisher) *SessionService {
	return &SessionService{
		sessions:  sessions,
		events:    events,
		defs:      defs,
		tx:        tx,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ActiveSessions returns the snapshot every dashboard starts from
func (s *SessionService) ActiveSessions(ctx context.Context) ([]*model.Session, error) {
	sessions, err := s.sessions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	return sessions, nil
}

// Get returns one session
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// History returns the session's status events in time order
func (s *SessionService) History(ctx context.Context, id string) ([]*model.StatusEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.events.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*model.StatusEvent{}
	}
	return events, nil
}

// StatusDefinitions returns every status a worker can switch to, oldest first
func (s *SessionService) StatusDefinitions(ctx context.Context) ([]*model.StatusDefinition, error) {
	defs, err := s.defs.List(ctx)
	if err != nil {
		return nil, err
	}
	if defs == nil {
		defs = []*model.StatusDefinition{}
	}
	return defs, nil
}

// Start opens a session for a worker at a station together with its first status event, and
// announces it as an insert
func (s *SessionService) Start(ctx context.Context, req *model.StartSessionRequest) (*model.Session, error) {
	def, err := s.defs.Get(ctx, req.StatusDefinitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatus, req.StatusDefinitionID)
	}

	now := s.now()
	sess := &model.Session{
		ID:                 uuid.NewString(),
		WorkerID:           req.WorkerID,
		StationID:          req.StationID,
		JobID:              req.JobID,
		JobItemID:          req.JobItemID,
		Status:             constants.SessionStatusActive,
		StartedAt:          now,
		LastSeenAt:         now,
		LastStatusChangeAt: model.TimePtr(now),
		LastNote:           req.Note,
	}
	event := &model.StatusEvent{
		ID:                 uuid.NewString(),
		SessionID:          sess.ID,
		StatusDefinitionID: def.ID,
		StartedAt:          now,
		Note:               req.Note,
	}
	sess.CurrentStatusID = model.StringPtr(event.ID)

	err = s.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.Insert(ctx, sess); err != nil {
			return err
		}
		return s.events.Create(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, model.ChangeInsert, sess.ID, now)

	// re-read for display names; the row itself is already committed
	if stored, err := s.sessions.Get(ctx, sess.ID); err == nil && stored != nil {
		return stored, nil
	}
	return sess, nil
}

// Heartbeat records that the worker is still present. Heartbeats are not announced.
func (s *SessionService) Heartbeat(ctx context.Context, id string) error {
	ok, err := s.sessions.Touch(ctx, id, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return s.inactiveReason(ctx, id)
	}
	return nil
}

// ChangeStatus closes the session's open status event and opens one for the requested status
func (s *SessionService) ChangeStatus(ctx context.Context, id string, req *model.StatusChangeRequest) (*model.StatusEvent, error) {
	def, err := s.defs.Get(ctx, req.StatusDefinitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatus, req.StatusDefinitionID)
	}

	now := s.now()
	event := &model.StatusEvent{
		ID:                 uuid.NewString(),
		SessionID:          id,
		StatusDefinitionID: def.ID,
		Reason:             req.Reason,
		StartedAt:          now,
		Note:               req.Note,
	}

	err = s.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.requireActive(ctx, id); err != nil {
			return err
		}
		if _, err := s.events.CloseOpen(ctx, id, now); err != nil {
			return err
		}
		if err := s.events.Create(ctx, event); err != nil {
			return err
		}
		ok, err := s.sessions.SetCurrentStatus(ctx, id, event.ID, now, req.Note)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionClosed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.announce(ctx, model.ChangeUpdate, id, now)
	return event, nil
}

// ReportQuantity adds produced good and scrap units to the session totals
func (s *SessionService) ReportQuantity(ctx context.Context, id string, report *model.QuantityReport) error {
	if report.Good < 0 || report.Scrap < 0 || (report.Good == 0 && report.Scrap == 0) {
		return ErrInvalidQuantity
	}
	now := s.now()
	ok, err := s.sessions.AddTotals(ctx, id, report.Good, report.Scrap, now)
	if err != nil {
		return err
	}
	if !ok {
		return s.inactiveReason(ctx, id)
	}
	s.announce(ctx, model.ChangeUpdate, id, now)
	return nil
}

// End completes the session at the worker's request
func (s *SessionService) End(ctx context.Context, id string) error {
	now := s.now()
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.requireActive(ctx, id); err != nil {
			return err
		}
		return s.complete(ctx, id, now)
	})
	if err != nil {
		return err
	}
	s.announce(ctx, model.ChangeUpdate, id, now)
	return nil
}

// ForceClose reclaims an abandoned session in its own transaction: the open status event is
// closed, an event in the stoppage status with the given reason is opened, and the session is
// completed with forced_closed_at set. The session is re-read first and left alone unless it is
// still active and was last seen before idleBefore. It reports whether the session was closed.
func (s *SessionService) ForceClose(ctx context.Context, id string, now, idleBefore time.Time, reason string) (bool, error) {
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			return err
		}
		if sess == nil || !sess.IsActive() || sess.ForcedClosedAt != nil || !sess.LastSeenAt.Before(idleBefore) {
			return errSkipReclaim
		}

		def, err := s.defs.FindStoppage(ctx)
		if err != nil {
			return err
		}
		if def == nil {
			return ErrNoStatusDefinition
		}

		return s.reclaim(ctx, id, now, idleBefore, &model.StatusEvent{
			ID:                 uuid.NewString(),
			SessionID:          id,
			StatusDefinitionID: def.ID,
			Reason:             reason,
			StartedAt:          now,
		})
	})
	if errors.Is(err, errSkipReclaim) || errors.Is(err, ErrSessionClosed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.announce(ctx, model.ChangeUpdate, id, now)
	return true, nil
}

// complete ends the session at the worker's request, leaving the last status as the current one
func (s *SessionService) complete(ctx context.Context, id string, now time.Time) error {
	if _, err := s.events.CloseOpen(ctx, id, now); err != nil {
		return err
	}
	ok, err := s.sessions.Complete(ctx, id, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionClosed
	}
	return nil
}

// reclaim ends an abandoned session in the closing status. The final write is guarded by
// idleBefore, so a heartbeat that lands after the idle check leaves the session open.
func (s *SessionService) reclaim(ctx context.Context, id string, now, idleBefore time.Time, closing *model.StatusEvent) error {
	if _, err := s.events.CloseOpen(ctx, id, now); err != nil {
		return err
	}
	if err := s.events.Create(ctx, closing); err != nil {
		return err
	}
	ok, err := s.sessions.Reclaim(ctx, id, closing.ID, now, idleBefore)
	if err != nil {
		return err
	}
	if !ok {
		return errSkipReclaim
	}
	return nil
}

func (s *SessionService) requireActive(ctx context.Context, id string) error {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if !sess.IsActive() {
		return ErrSessionClosed
	}
	return nil
}

func (s *SessionService) inactiveReason(ctx context.Context, id string) error {
	if err := s.requireActive(ctx, id); err != nil {
		return err
	}
	return ErrSessionClosed
}

func (s *SessionService) announce(ctx context.Context, kind model.ChangeKind, id string, at time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, model.ChangeEvent{Kind: kind, SessionID: id, At: at}); err != nil {
		logger.WarnCtx(ctx, "failed to announce %s of session %s: %v", kind, id, err)
	}
}
