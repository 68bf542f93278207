package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swimforge/garminbridge/provider"
)

// DefaultChallengeTTL bounds how long an in-flight challenge stays resumable.
const DefaultChallengeTTL = 600 * time.Second

// PendingChallenge is the server-side record of an in-flight MFA handshake.
type PendingChallenge struct {
	// ID is a reference for logs. It never appears in responses and
	// carries no resume capability.
	ID        string
	UserID    string
	Email     string
	State     provider.ChallengeState
	CreatedAt time.Time
}

// ChallengeStore holds at most one pending challenge per user id with a
// fixed TTL. Expiry is enforced lazily on read plus via Sweep; there is no
// background timer.
type ChallengeStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]PendingChallenge
}

// NewChallengeStore creates a challenge store. A non-positive ttl falls back
// to DefaultChallengeTTL.
func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeStore{
		ttl:  ttl,
		data: make(map[string]PendingChallenge),
	}
}

// Begin records a new pending challenge for userID, replacing any prior one.
func (s *ChallengeStore) Begin(userID string, state provider.ChallengeState, email string, now time.Time) PendingChallenge {
	pc := PendingChallenge{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		State:     state,
		CreatedAt: now,
	}
	s.mu.Lock()
	s.data[userID] = pc
	s.mu.Unlock()
	return pc
}

// Resolve returns the pending challenge for userID without removing it;
// removal happens on Complete. An entry past its TTL is purged and reported
// as ErrChallengeExpired.
func (s *ChallengeStore) Resolve(userID string, now time.Time) (PendingChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pc, ok := s.data[userID]
	if !ok {
		return PendingChallenge{}, ErrChallengeNotFound
	}
	if now.Sub(pc.CreatedAt) > s.ttl {
		delete(s.data, userID)
		return PendingChallenge{}, ErrChallengeExpired
	}
	return pc, nil
}

// Remaining reports how long the pending challenge for userID stays
// resumable. Expired entries are purged and reported as absent. Unlike
// Resolve it distinguishes nothing beyond presence, so status probes can
// use it without caring why the entry is gone.
func (s *ChallengeStore) Remaining(userID string, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pc, ok := s.data[userID]
	if !ok {
		return 0, false
	}
	left := s.ttl - now.Sub(pc.CreatedAt)
	if left <= 0 {
		delete(s.data, userID)
		return 0, false
	}
	return left, true
}

// Complete removes the challenge for userID after a successful resume.
func (s *ChallengeStore) Complete(userID string) {
	s.mu.Lock()
	delete(s.data, userID)
	s.mu.Unlock()
}

// Cancel removes the challenge for userID regardless of age. Used when a
// new login attempt starts or the backend locks the flow out.
func (s *ChallengeStore) Cancel(userID string) bool {
	s.mu.Lock()
	_, ok := s.data[userID]
	delete(s.data, userID)
	s.mu.Unlock()
	return ok
}

// Sweep removes every entry past its TTL and reports how many were removed.
// Intended to run opportunistically, e.g. on each health probe, to bound
// memory growth from abandoned challenges.
func (s *ChallengeStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, pc := range s.data {
		if now.Sub(pc.CreatedAt) > s.ttl {
			delete(s.data, userID)
			removed++
		}
	}
	return removed
}

// Len reports the number of pending challenges, including any not yet
// lazily purged.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
