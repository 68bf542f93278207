package auth

import (
	"sync"
	"time"

	"github.com/swimforge/garminbridge/provider"
)

// Session is the live authenticated state for one user. It owns the
// provider client handle exclusively.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
	ConnectedAt time.Time
	// LastSync is zero until the first successful sync.
	LastSync time.Time
	Client   provider.Client
}

// SessionStore holds at most one active session per user id. It is safe for
// concurrent use; operations are brief bookkeeping steps and never block on
// remote calls.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{data: make(map[string]Session)}
}

// Put stores the session for its user id, replacing any prior session.
func (s *SessionStore) Put(session Session) {
	s.mu.Lock()
	s.data[session.UserID] = session
	s.mu.Unlock()
}

// Get returns the session for userID, if any.
func (s *SessionStore) Get(userID string) (Session, bool) {
	s.mu.RLock()
	session, ok := s.data[userID]
	s.mu.RUnlock()
	return session, ok
}

// Delete removes the session for userID. Absent sessions are not an error;
// the return reports whether anything was removed.
func (s *SessionStore) Delete(userID string) bool {
	s.mu.Lock()
	_, ok := s.data[userID]
	delete(s.data, userID)
	s.mu.Unlock()
	return ok
}

// TouchLastSync updates the last-sync timestamp of an existing session.
// It is a no-op when no session exists; it never creates one.
func (s *SessionStore) TouchLastSync(userID string, at time.Time) {
	s.mu.Lock()
	if session, ok := s.data[userID]; ok {
		session.LastSync = at
		s.data[userID] = session
	}
	s.mu.Unlock()
}

// Len reports the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
