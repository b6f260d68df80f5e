package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// session is one client connection's server-side state. The protocol is
// single-flight per session: inflight guards against a second rpc being
// processed while one is already running.
type session struct {
	id       string
	inflight sync.Mutex
	lastSeen time.Time
}

// sessionStore tracks open sessions and expires idle ones.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
	}
}

// open creates a session and returns its ID.
func (s *sessionStore) open() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{id: id, lastSeen: time.Now()}
	s.mu.Unlock()
	return id
}

// get fetches a live session and refreshes its idle timer.
func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = time.Now()
	return sess, true
}

// close removes a session. Closing an unknown session is a no-op.
func (s *sessionStore) close(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// sweep drops sessions idle longer than the TTL and reports how many.
func (s *sessionStore) sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// count returns the number of open sessions.
func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
