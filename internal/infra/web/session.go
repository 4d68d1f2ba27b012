package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps logged-in console sessions in memory. Every authenticated
// request pushes the expiry forward by ttl.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]time.Time // id -> expires at
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Create starts a session and returns its id.
func (s *SessionStore) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	id := uuid.NewString()
	s.sessions[id] = s.now().Add(s.ttl)
	return id
}

// Touch reports whether id is live and, if so, extends it.
func (s *SessionStore) Touch(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.sessions[id]
	if !ok {
		return false
	}
	now := s.now()
	if !now.Before(expires) {
		delete(s.sessions, id)
		return false
	}
	s.sessions[id] = now.Add(s.ttl)
	return true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len counts stored sessions, expired ones included until the next sweep.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked() {
	now := s.now()
	for id, expires := range s.sessions {
		if !now.Before(expires) {
			delete(s.sessions, id)
		}
	}
}
