package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"floorsync/internal/model"
	"floorsync/pkg/constants"
)

// fakeDB is an in-memory stand-in for the MySQL repositories. ExecTx snapshots the state and
// restores it when fn fails, so tests observe transaction rollback.
type fakeDB struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	events   []*model.StatusEvent
	defs     []*model.StatusDefinition
	items    map[string]*model.JobItem
	steps    map[string][]*model.PipelineStep

	listErr       error
	completeErr   map[string]error
	beforeReclaim func(id string)
	insertErr     error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		sessions:    make(map[string]*model.Session),
		items:       make(map[string]*model.JobItem),
		steps:       make(map[string][]*model.PipelineStep),
		completeErr: make(map[string]error),
	}
}

func (f *fakeDB) put(s *model.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s.Clone()
}

func (f *fakeDB) session(id string) *model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Clone()
}

func (f *fakeDB) eventsOf(sessionID string) []*model.StatusEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.StatusEvent
	for _, e := range f.events {
		if e.SessionID == sessionID {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

func (f *fakeDB) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	savedSessions := make(map[string]*model.Session, len(f.sessions))
	for id, s := range f.sessions {
		savedSessions[id] = s.Clone()
	}
	savedEvents := make([]*model.StatusEvent, len(f.events))
	for i, e := range f.events {
		c := *e
		savedEvents[i] = &c
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.sessions = savedSessions
		f.events = savedEvents
		f.mu.Unlock()
		return err
	}
	return nil
}

// sessionRepository

func (f *fakeDB) ListActive(ctx context.Context) ([]*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*model.Session
	for _, s := range f.sessions {
		if s.Status == constants.SessionStatusActive {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (f *fakeDB) ListIdle(ctx context.Context, cutoff time.Time) ([]*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*model.Session
	for _, s := range f.sessions {
		if s.Status == constants.SessionStatusActive && s.ForcedClosedAt == nil && s.LastSeenAt.Before(cutoff) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) Get(ctx context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Clone(), nil
}

func (f *fakeDB) Insert(ctx context.Context, session *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.sessions[session.ID] = session.Clone()
	return nil
}

func (f *fakeDB) activeLocked(id string) *model.Session {
	s, ok := f.sessions[id]
	if !ok || s.Status != constants.SessionStatusActive {
		return nil
	}
	return s
}

func (f *fakeDB) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.activeLocked(id)
	if s == nil {
		return false, nil
	}
	s.LastSeenAt = at
	return true, nil
}

func (f *fakeDB) SetCurrentStatus(ctx context.Context, id, statusEventID string, at time.Time, note string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.activeLocked(id)
	if s == nil {
		return false, nil
	}
	s.CurrentStatusID = model.StringPtr(statusEventID)
	s.LastStatusChangeAt = model.TimePtr(at)
	s.LastSeenAt = at
	s.LastNote = note
	return true, nil
}

func (f *fakeDB) AddTotals(ctx context.Context, id string, good, scrap int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.activeLocked(id)
	if s == nil {
		return false, nil
	}
	s.TotalGood += good
	s.TotalScrap += scrap
	s.LastSeenAt = at
	return true, nil
}

func (f *fakeDB) Complete(ctx context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.completeErr[id]; err != nil {
		return false, err
	}
	s := f.activeLocked(id)
	if s == nil {
		return false, nil
	}
	s.Status = constants.SessionStatusCompleted
	s.EndedAt = model.TimePtr(at)
	s.LastStatusChangeAt = model.TimePtr(at)
	return true, nil
}

func (f *fakeDB) Reclaim(ctx context.Context, id, statusEventID string, at, idleBefore time.Time) (bool, error) {
	if f.beforeReclaim != nil {
		f.beforeReclaim(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.completeErr[id]; err != nil {
		return false, err
	}
	s := f.activeLocked(id)
	if s == nil || s.ForcedClosedAt != nil || !s.LastSeenAt.Before(idleBefore) {
		return false, nil
	}
	s.Status = constants.SessionStatusCompleted
	s.CurrentStatusID = model.StringPtr(statusEventID)
	s.EndedAt = model.TimePtr(at)
	s.ForcedClosedAt = model.TimePtr(at)
	s.LastStatusChangeAt = model.TimePtr(at)
	return true, nil
}

// statusEventRepository

func (f *fakeDB) CloseOpen(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.events {
		if e.SessionID == sessionID && e.EndedAt == nil {
			e.EndedAt = model.TimePtr(at)
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) Create(ctx context.Context, event *model.StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *event
	f.events = append(f.events, &c)
	return nil
}

func (f *fakeDB) ListBySession(ctx context.Context, sessionID string) ([]*model.StatusEvent, error) {
	events := f.eventsOf(sessionID)
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartedAt.Before(events[j].StartedAt) })
	return events, nil
}

// fakeDefs implements statusDefinitionRepository over fakeDB.defs

type fakeDefs struct{ db *fakeDB }

func (d fakeDefs) Get(ctx context.Context, id string) (*model.StatusDefinition, error) {
	for _, def := range d.db.defs {
		if def.ID == id {
			return def, nil
		}
	}
	return nil, nil
}

func (d fakeDefs) FindStoppage(ctx context.Context) (*model.StatusDefinition, error) {
	defs := append([]*model.StatusDefinition(nil), d.db.defs...)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].CreatedAt.Before(defs[j].CreatedAt) })
	for _, def := range defs {
		if def.Kind == constants.StatusKindStoppage {
			return def, nil
		}
	}
	if len(defs) == 0 {
		return nil, nil
	}
	return defs[0], nil
}

func (d fakeDefs) List(ctx context.Context) ([]*model.StatusDefinition, error) {
	defs := append([]*model.StatusDefinition(nil), d.db.defs...)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].CreatedAt.Before(defs[j].CreatedAt) })
	return defs, nil
}

// fakePipeline implements pipelineRepository over fakeDB

type fakePipeline struct{ db *fakeDB }

func (p fakePipeline) GetJobItem(ctx context.Context, id string) (*model.JobItem, error) {
	return p.db.items[id], nil
}

func (p fakePipeline) ListSteps(ctx context.Context, jobItemID string) ([]*model.PipelineStep, error) {
	return p.db.steps[jobItemID], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.ChangeEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, event model.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) sessionIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.SessionID)
	}
	return out
}

type fakeSubscriber struct {
	handle func(model.ChangeEvent)
	err    error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, handle func(model.ChangeEvent)) error {
	s.handle = handle
	return s.err
}

var errBoom = errors.New("boom")

var sweepTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func sessionSeenAgo(id string, ago time.Duration) *model.Session {
	return &model.Session{
		ID:         id,
		WorkerID:   "w-" + id,
		StationID:  model.StringPtr("st-1"),
		Status:     constants.SessionStatusActive,
		StartedAt:  sweepTime.Add(-8 * time.Hour),
		LastSeenAt: sweepTime.Add(-ago),
	}
}

func standardDefs() []*model.StatusDefinition {
	return []*model.StatusDefinition{
		{ID: "def-prod", Label: "Production", Kind: constants.StatusKindProduction, CreatedAt: sweepTime.Add(-72 * time.Hour)},
		{ID: "def-stop", Label: "Machine down", Kind: constants.StatusKindStoppage, CreatedAt: sweepTime.Add(-48 * time.Hour)},
		{ID: "def-stop-2", Label: "Waiting", Kind: constants.StatusKindStoppage, CreatedAt: sweepTime.Add(-24 * time.Hour)},
	}
}

func newServices(db *fakeDB, pub *fakePublisher) (*SessionService, *ReclaimService) {
	lifecycle := NewSessionService(db, db, fakeDefs{db}, db, pub)
	lifecycle.now = func() time.Time { return sweepTime }
	return lifecycle, NewReclaimService(db, lifecycle)
}
