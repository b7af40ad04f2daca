// Package livestore is the dashboard-side cache of active sessions. It keeps derived views
// memoized and tells observers when, and only when, something they can see has changed.
package livestore

import (
	"sync"

	"floorsync/internal/model"
)

// ConnectionState where the feeding stream currently is
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateError        ConnectionState = "error"
)

// Snapshot is a consistent read of the store. Session records are shared with the store and must
// be treated as read-only.
type Snapshot struct {
	Sessions   map[string]*model.Session
	SessionIDs []string
	StationIDs []string
	Stats      Stats
	State      ConnectionState
	Error      string
	Version    uint64
}

// Store in-memory keyed collection of active sessions with derived aggregates.
// Records handed to the store are owned by it afterwards and must not be modified by the caller.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	arrival  map[string]uint64
	seq      uint64
	aggs     Aggregates
	version  uint64

	summaries        []JobSummary
	summariesVersion uint64

	state   ConnectionState
	lastErr string

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func()
}

// New creates an empty store in the connecting state
func New() *Store {
	s := &Store{
		sessions:    make(map[string]*model.Session),
		arrival:     make(map[string]uint64),
		state:       StateConnecting,
		subscribers: make(map[int]func()),
	}
	s.aggs = Derive(s.sessions, s.arrival, Aggregates{})
	s.summariesVersion = ^uint64(0)
	return s
}

// Subscribe registers fn to be called after every observable change. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// ApplyBatch replaces the whole content with sessions. Records equal to what the store already
// holds keep their identity; if the result is structurally the same map nothing is recomputed
// and no observer is notified. Returns whether anything changed.
func (s *Store) ApplyBatch(sessions []*model.Session) bool {
	s.mu.Lock()

	next := make(map[string]*model.Session, len(sessions))
	order := make([]string, 0, len(sessions))
	changed := false
	for _, in := range sessions {
		if in == nil || in.ID == "" {
			continue
		}
		base, dup := next[in.ID]
		if !dup {
			base = s.sessions[in.ID]
			order = append(order, in.ID)
		}
		merged := Merge(base, in)
		if merged != s.sessions[in.ID] {
			changed = true
		}
		next[in.ID] = merged
	}
	if len(next) != len(s.sessions) {
		changed = true
	} else if !changed {
		for id := range s.sessions {
			if _, ok := next[id]; !ok {
				changed = true
				break
			}
		}
	}
	if !changed {
		s.mu.Unlock()
		return false
	}

	arrival := make(map[string]uint64, len(next))
	for _, id := range order {
		if seq, ok := s.arrival[id]; ok {
			arrival[id] = seq
			continue
		}
		s.seq++
		arrival[id] = s.seq
	}
	s.sessions = next
	s.arrival = arrival
	s.recomputeLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// ApplyOne upserts a single record through Merge. Returns whether anything changed.
func (s *Store) ApplyOne(session *model.Session) bool {
	if session == nil || session.ID == "" {
		return false
	}

	s.mu.Lock()
	current := s.sessions[session.ID]
	merged := Merge(current, session)
	if merged == current {
		s.mu.Unlock()
		return false
	}
	if current == nil {
		s.seq++
		s.arrival[session.ID] = s.seq
	}
	s.sessions[session.ID] = merged
	s.recomputeLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// Remove deletes a record. Returns whether it was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, id)
	delete(s.arrival, id)
	s.recomputeLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

// SetConnectionState records the feeding stream's state. Only the streaming client calls this.
func (s *Store) SetConnectionState(state ConnectionState, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	s.mu.Lock()
	if s.state == state && s.lastErr == msg {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.lastErr = msg
	s.mu.Unlock()

	s.notify()
}

// ConnectionState returns the current stream state and last error message
func (s *Store) ConnectionState() (ConnectionState, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastErr
}

// Get returns one record
func (s *Store) Get(id string) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Len returns the number of sessions held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Aggregates returns the memoized derived views
func (s *Store) Aggregates() Aggregates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggs
}

// Snapshot returns a consistent copy of the store's state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make(map[string]*model.Session, len(s.sessions))
	for id, sess := range s.sessions {
		sessions[id] = sess
	}
	return Snapshot{
		Sessions:   sessions,
		SessionIDs: s.aggs.SessionIDs,
		StationIDs: s.aggs.StationIDs,
		Stats:      s.aggs.Stats,
		State:      s.state,
		Error:      s.lastErr,
		Version:    s.version,
	}
}

// JobSummaries returns the live per-job summaries, recomputed at most once per map change
func (s *Store) JobSummaries() []JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summariesVersion != s.version {
		s.summaries = Summarize(s.aggs.SessionIDs, s.sessions)
		s.summariesVersion = s.version
	}
	return s.summaries
}

func (s *Store) recomputeLocked() {
	s.aggs = Derive(s.sessions, s.arrival, s.aggs)
	s.version++
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
