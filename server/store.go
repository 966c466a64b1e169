package server

import (
	"sync"
	"time"

	"github.com/etnz/fsa"
	"github.com/etnz/fsa/agent"
	"github.com/google/uuid"
)

// session is an uploaded statement, its report, and the AI exchanges about it.
type session struct {
	ID      string      `json:"id"`
	Created time.Time   `json:"created"`
	Report  *fsa.Report `json:"report"`

	mu         sync.Mutex // serializes AI calls
	chat       *agent.Session
	commentary string
	closed     bool

	lastUsed time.Time // guarded by the store
}

// close disposes the chat, if any. A closed session does not open a new chat.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.chat != nil {
		s.chat.Close()
	}
}

// store holds the sessions, expiring them after ttl without activity.
type store struct {
	mu       sync.Mutex
	ttl      time.Duration
	max      int
	now      func() time.Time
	sessions map[string]*session
}

func newStore(ttl time.Duration, max int) *store {
	return &store{
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// add creates a session for r, evicting the least recently used one when full.
func (s *store) add(r *fsa.Report) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	for len(s.sessions) >= s.max {
		var oldest *session
		for _, e := range s.sessions {
			if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
				oldest = e
			}
		}
		s.remove(oldest.ID)
	}
	e := &session{ID: uuid.NewString(), Created: now, Report: r, lastUsed: now}
	s.sessions[e.ID] = e
	return e
}

// get returns the session id and marks it as used.
func (s *store) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	e, ok := s.sessions[id]
	if ok {
		e.lastUsed = now
	}
	return e, ok
}

// delete disposes the session id, it reports whether it existed.
func (s *store) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.now())
	_, ok := s.sessions[id]
	s.remove(id)
	return ok
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// prune removes expired sessions, s.mu must be held.
func (s *store) prune(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) > s.ttl {
			s.remove(id)
		}
	}
}

// remove deletes and closes session id, s.mu must be held.
func (s *store) remove(id string) {
	e, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	go e.close() // a running AI call holds e.mu
}
