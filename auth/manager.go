// Package auth implements the authentication session and MFA handshake
// manager: the login state machine, the per-user session and pending
// challenge stores, and credential persistence.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/swimforge/garminbridge/provider"
)

// Manager orchestrates login, challenge resumption, logout, and status
// across the session store, the challenge store, and credential
// persistence. Store locks are only held for bookkeeping; remote provider
// calls happen between store touches, never under a lock.
type Manager struct {
	authenticator provider.Authenticator
	sessions      *SessionStore
	challenges    *ChallengeStore
	tokens        TokenStore
	log           *slog.Logger
	now           func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides the wall clock, for tests exercising TTL behavior.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithChallengeTTL overrides the pending-challenge TTL.
func WithChallengeTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.challenges = NewChallengeStore(ttl) }
}

// NewManager creates a Manager with empty stores.
func NewManager(authenticator provider.Authenticator, tokens TokenStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		authenticator: authenticator,
		sessions:      NewSessionStore(),
		challenges:    NewChallengeStore(DefaultChallengeTTL),
		tokens:        tokens,
		log:           slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoginOutcome reports how a login attempt concluded when it did not fail.
type LoginOutcome struct {
	// MFARequired is true when the backend demanded a second factor and a
	// pending challenge was recorded instead of a session.
	MFARequired bool
	// DisplayName is the account display name, when a session was created
	// and the profile probe succeeded.
	DisplayName string
}

// StatusInfo is the read-only connection state for one user.
type StatusInfo struct {
	Connected        bool
	Email            string
	DisplayName      string
	LastSync         time.Time
	CredentialOnFile bool
}

// Login starts a fresh login for userID. Any existing session, pending
// challenge, or in-memory reuse path for that id is cleared first. A stored
// credential is tried before the password round-trip; if it validates, the
// session is established without contacting the password endpoint.
func (m *Manager) Login(ctx context.Context, userID, email, password string) (LoginOutcome, error) {
	// Fresh-start semantics: a new attempt invalidates whatever came before.
	m.sessions.Delete(userID)
	m.challenges.Cancel(userID)

	if session, ok := m.resumeFromToken(ctx, userID, email); ok {
		return LoginOutcome{DisplayName: session.DisplayName}, nil
	}

	client, err := m.authenticator.Login(ctx, email, password)
	var challenge *provider.ChallengeRequiredError
	switch {
	case errors.As(err, &challenge):
		// Keep the pair-clearing adjacent to the create so the one-of
		// {session, challenge} invariant holds across interleavings.
		m.sessions.Delete(userID)
		pc := m.challenges.Begin(userID, challenge.State, email, m.now())
		m.log.Info("login requires challenge",
			"user_id", userID, "challenge_id", pc.ID)
		return LoginOutcome{MFARequired: true}, nil
	case err != nil:
		return LoginOutcome{}, err
	}

	session := m.establish(ctx, userID, email, client)
	return LoginOutcome{DisplayName: session.DisplayName}, nil
}

// resumeFromToken tries to rebuild a session from a persisted credential.
// Invalid or rejected credentials are deleted so the caller falls through
// to fresh authentication.
func (m *Manager) resumeFromToken(ctx context.Context, userID, email string) (Session, bool) {
	blob, err := m.tokens.Load(userID)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			m.log.Warn("loading stored credential", "user_id", userID, "error", err)
		}
		return Session{}, false
	}

	client, err := m.authenticator.Restore(ctx, blob)
	if err == nil {
		// Probe before trusting: a loaded blob is not live until the
		// backend accepts it.
		var name string
		name, err = client.ProbeIdentity(ctx)
		if err == nil {
			m.log.Info("session restored from stored credential", "user_id", userID)
			return m.establishWithName(userID, email, name, client), true
		}
	}

	m.log.Info("stored credential rejected, falling back to password",
		"user_id", userID, "error", err)
	if err := m.tokens.Delete(userID); err != nil {
		m.log.Warn("deleting stale credential", "user_id", userID, "error", err)
	}
	return Session{}, false
}

// SubmitChallenge resumes a pending MFA handshake with the user's code.
// A wrong code leaves the challenge intact for retry within the TTL window;
// a rate-limit signal from the backend cancels it.
func (m *Manager) SubmitChallenge(ctx context.Context, userID, code string) (Session, error) {
	pc, err := m.challenges.Resolve(userID, m.now())
	if err != nil {
		return Session{}, err
	}

	client, err := m.authenticator.Resume(ctx, pc.State, code)
	if err != nil {
		if errors.Is(err, provider.ErrRateLimited) {
			m.challenges.Cancel(userID)
			m.log.Warn("challenge rate limited, cancelled",
				"user_id", userID, "challenge_id", pc.ID)
		}
		return Session{}, err
	}

	m.challenges.Complete(userID)
	m.log.Info("challenge completed", "user_id", userID, "challenge_id", pc.ID)
	return m.establish(ctx, userID, pc.Email, client), nil
}

// establish probes the display name best-effort and then records the session.
func (m *Manager) establish(ctx context.Context, userID, email string, client provider.Client) Session {
	name, err := client.ProbeIdentity(ctx)
	if err != nil {
		name = ""
	}
	return m.establishWithName(userID, email, name, client)
}

func (m *Manager) establishWithName(userID, email, name string, client provider.Client) Session {
	if blob, err := client.Serialize(); err != nil {
		m.log.Warn("serializing credential", "user_id", userID, "error", err)
	} else if err := m.tokens.Save(userID, blob); err != nil {
		// Non-fatal: the session stays usable in memory for this
		// process lifetime.
		m.log.Warn("persisting credential", "user_id", userID, "error", err)
	}

	session := Session{
		UserID:      userID,
		Email:       email,
		DisplayName: name,
		ConnectedAt: m.now(),
		Client:      client,
	}
	m.challenges.Cancel(userID)
	m.sessions.Put(session)
	return session
}

// Logout removes the user's session, pending challenge, and persisted
// credential. It is idempotent and reports whether any state existed.
func (m *Manager) Logout(userID string) (existed bool) {
	hadSession := m.sessions.Delete(userID)
	hadChallenge := m.challenges.Cancel(userID)
	if err := m.tokens.Delete(userID); err != nil {
		m.log.Warn("deleting stored credential", "user_id", userID, "error", err)
	}
	return hadSession || hadChallenge
}

// Status reports the connection state for userID without mutating any
// session, challenge, or persisted state.
func (m *Manager) Status(userID string) StatusInfo {
	if session, ok := m.sessions.Get(userID); ok {
		return StatusInfo{
			Connected:        true,
			Email:            session.Email,
			DisplayName:      session.DisplayName,
			LastSync:         session.LastSync,
			CredentialOnFile: m.tokens.Exists(userID),
		}
	}
	// A credential on file without a live session is reported degraded;
	// probing it here would make Status mutating.
	return StatusInfo{CredentialOnFile: m.tokens.Exists(userID)}
}

// ChallengeRemaining reports whether a challenge is pending for userID and
// how long it stays resumable.
func (m *Manager) ChallengeRemaining(userID string) (time.Duration, bool) {
	return m.challenges.Remaining(userID, m.now())
}

// Activities fetches up to limit recent records through the user's session.
// A session-expired signal from the backend evicts the session instead of
// being retried.
func (m *Manager) Activities(ctx context.Context, userID string, limit int) ([]provider.Activity, error) {
	session, ok := m.sessions.Get(userID)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	records, err := session.Client.Activities(ctx, limit)
	if err != nil {
		if errors.Is(err, provider.ErrSessionExpired) {
			m.sessions.Delete(userID)
			m.log.Info("session evicted after backend rejection", "user_id", userID)
		}
		return nil, err
	}
	return records, nil
}

// MarkSynced updates the session's last-sync timestamp. No-op without a
// session.
func (m *Manager) MarkSynced(userID string) {
	m.sessions.TouchLastSync(userID, m.now())
}

// ActiveSessions reports the number of live sessions.
func (m *Manager) ActiveSessions() int { return m.sessions.Len() }

// PendingChallenges reports the number of stored challenges.
func (m *Manager) PendingChallenges() int { return m.challenges.Len() }

// SweepChallenges purges expired challenges and reports how many were
// removed.
func (m *Manager) SweepChallenges() int {
	return m.challenges.Sweep(m.now())
}
