package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swimforge/garminbridge/provider"
	"github.com/swimforge/garminbridge/provider/providertest"
)

type managerFixture struct {
	mgr    *Manager
	fake   *providertest.Fake
	tokens *FileTokenStore
	now    *time.Time
}

func newFixture(t *testing.T, fake *providertest.Fake) *managerFixture {
	t.Helper()
	tokens, err := NewFileTokenStore(t.TempDir(), "test-secret")
	if err != nil {
		t.Fatalf("NewFileTokenStore: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(fake, tokens,
		WithClock(func() time.Time { return now }))
	return &managerFixture{mgr: mgr, fake: fake, tokens: tokens, now: &now}
}

func (f *managerFixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func TestLoginDirectSuccess(t *testing.T) {
	f := newFixture(t, &providertest.Fake{Password: "pw1", DisplayName: "Ada Swimmer"})

	outcome, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if outcome.MFARequired {
		t.Fatal("expected direct login without MFA")
	}
	if outcome.DisplayName != "Ada Swimmer" {
		t.Fatalf("got display name %q", outcome.DisplayName)
	}

	status := f.mgr.Status("u1")
	if !status.Connected || status.Email != "a@x.com" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if !f.tokens.Exists("u1") {
		t.Fatal("expected credential file to be written")
	}
	if f.mgr.PendingChallenges() != 0 {
		t.Fatal("no challenge should be pending after direct login")
	}
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t, &providertest.Fake{Password: "right"})

	_, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "wrong")
	if !errors.Is(err, provider.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
	if f.mgr.ActiveSessions() != 0 || f.mgr.PendingChallenges() != 0 {
		t.Fatal("no state should be created on rejection")
	}
	if f.tokens.Exists("u1") {
		t.Fatal("no credential should be persisted on rejection")
	}
}

func TestLoginUnavailable(t *testing.T) {
	f := newFixture(t, &providertest.Fake{Unavailable: true})

	_, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw")
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	if f.mgr.ActiveSessions() != 0 || f.mgr.PendingChallenges() != 0 {
		t.Fatal("no state should be created when the backend is down")
	}
}

func TestChallengeFlowSuccess(t *testing.T) {
	f := newFixture(t, &providertest.Fake{RequireMFA: true, MFACode: "654321"})

	outcome, err := f.mgr.Login(context.Background(), "u2", "b@x.com", "pw2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !outcome.MFARequired {
		t.Fatal("expected MFA to be required")
	}
	if f.mgr.ActiveSessions() != 0 {
		t.Fatal("no session should exist while the challenge is pending")
	}
	if f.mgr.PendingChallenges() != 1 {
		t.Fatal("expected one pending challenge")
	}

	f.advance(60 * time.Second)
	session, err := f.mgr.SubmitChallenge(context.Background(), "u2", "654321")
	if err != nil {
		t.Fatalf("SubmitChallenge: %v", err)
	}
	if session.Email != "b@x.com" {
		t.Fatalf("got session email %q", session.Email)
	}
	if f.mgr.PendingChallenges() != 0 {
		t.Fatal("challenge should be removed on success")
	}
	if f.mgr.ActiveSessions() != 1 {
		t.Fatal("expected an active session")
	}
	if !f.tokens.Exists("u2") {
		t.Fatal("expected credential file to be written after resume")
	}
}

func TestChallengeWrongCodeLeavesEntry(t *testing.T) {
	f := newFixture(t, &providertest.Fake{RequireMFA: true, MFACode: "654321"})

	if _, err := f.mgr.Login(context.Background(), "u2", "b@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err := f.mgr.SubmitChallenge(context.Background(), "u2", "000000")
	if !errors.Is(err, provider.ErrInvalidCode) {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
	if f.mgr.PendingChallenges() != 1 {
		t.Fatal("challenge must stay intact after a wrong code")
	}

	// A correct retry within the window still completes.
	if _, err := f.mgr.SubmitChallenge(context.Background(), "u2", "654321"); err != nil {
		t.Fatalf("retry SubmitChallenge: %v", err)
	}
}

func TestChallengeRateLimitCancels(t *testing.T) {
	f := newFixture(t, &providertest.Fake{RequireMFA: true, MFACode: "654321", RateLimitAfter: 2})

	if _, err := f.mgr.Login(context.Background(), "u2", "b@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.mgr.SubmitChallenge(context.Background(), "u2", "111111"); !errors.Is(err, provider.ErrInvalidCode) {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
	_, err := f.mgr.SubmitChallenge(context.Background(), "u2", "222222")
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	if f.mgr.PendingChallenges() != 0 {
		t.Fatal("challenge must be cancelled on rate limit")
	}
	if _, err := f.mgr.SubmitChallenge(context.Background(), "u2", "654321"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("got %v, want ErrChallengeNotFound after cancellation", err)
	}
}

func TestChallengeExpiry(t *testing.T) {
	f := newFixture(t, &providertest.Fake{RequireMFA: true, MFACode: "654321"})

	if _, err := f.mgr.Login(context.Background(), "u2", "b@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.advance(700 * time.Second)
	_, err := f.mgr.SubmitChallenge(context.Background(), "u2", "000000")
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("got %v, want ErrChallengeExpired", err)
	}
	if f.mgr.PendingChallenges() != 0 {
		t.Fatal("expired challenge must be purged")
	}
	// No remote call happened: the fake saw no code submissions.
	if f.fake.BadCodeCount() != 0 {
		t.Fatal("expired challenge must short-circuit before the remote call")
	}
}

func TestLoginFreshStartClearsState(t *testing.T) {
	fake := &providertest.Fake{RequireMFA: true, MFACode: "654321"}
	f := newFixture(t, fake)

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if f.mgr.PendingChallenges() != 1 {
		t.Fatal("expected a pending challenge")
	}

	// A new attempt replaces the old challenge outright.
	fake.RequireMFA = false
	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if f.mgr.PendingChallenges() != 0 {
		t.Fatal("new login must clear the pending challenge")
	}
	if f.mgr.ActiveSessions() != 1 {
		t.Fatal("expected an active session")
	}
}

func TestSessionChallengeExclusivity(t *testing.T) {
	fake := &providertest.Fake{}
	f := newFixture(t, fake)

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Drop the stored credential so the next attempt takes the password
	// path. Session exists; a challenge-demanding login replaces it with
	// a pending challenge, never holding both.
	if err := f.tokens.Delete("u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	fake.RequireMFA = true
	fake.MFACode = "654321"
	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if f.mgr.ActiveSessions() != 0 {
		t.Fatal("session must be cleared when a challenge begins")
	}
	if f.mgr.PendingChallenges() != 1 {
		t.Fatal("expected a pending challenge")
	}

	if _, err := f.mgr.SubmitChallenge(context.Background(), "u1", "654321"); err != nil {
		t.Fatalf("SubmitChallenge: %v", err)
	}
	if f.mgr.ActiveSessions() != 1 || f.mgr.PendingChallenges() != 0 {
		t.Fatal("completion must swap the challenge for a session")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	f := newFixture(t, &providertest.Fake{})

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !f.mgr.Logout("u1") {
		t.Fatal("first Logout should report state removed")
	}
	if f.tokens.Exists("u1") {
		t.Fatal("credential file must be deleted on logout")
	}

	// Logging out again, or logging out a user that never logged in,
	// still succeeds.
	if f.mgr.Logout("u1") {
		t.Fatal("second Logout should report no state")
	}
	if f.mgr.Logout("stranger") {
		t.Fatal("Logout of unknown user should report no state")
	}
}

func TestLoginResumesFromStoredCredential(t *testing.T) {
	fake := &providertest.Fake{Password: "pw1", DisplayName: "Ada"}
	f := newFixture(t, fake)

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	// Simulate a restart: sessions are memory-only, the token file stays.
	f.mgr.sessions.Delete("u1")

	status := f.mgr.Status("u1")
	if status.Connected {
		t.Fatal("expected disconnected after restart")
	}
	if !status.CredentialOnFile {
		t.Fatal("expected credential-on-file status")
	}

	// Password is wrong, but the stored credential short-circuits the
	// password round-trip entirely.
	outcome, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "wrong-password")
	if err != nil {
		t.Fatalf("Login via stored credential: %v", err)
	}
	if outcome.MFARequired {
		t.Fatal("stored credential path must not demand MFA")
	}
	if !f.mgr.Status("u1").Connected {
		t.Fatal("expected connected after resume")
	}
}

func TestLoginDeletesRejectedStoredCredential(t *testing.T) {
	fake := &providertest.Fake{Password: "pw1"}
	f := newFixture(t, fake)

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.mgr.sessions.Delete("u1")
	fake.Revoke("a@x.com")

	// The stale credential fails its probe, gets deleted, and the flow
	// falls through to fresh password authentication.
	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw1"); err != nil {
		t.Fatalf("Login after revocation: %v", err)
	}
	if !f.mgr.Status("u1").Connected {
		t.Fatal("expected fresh authentication to succeed")
	}
}

func TestActivitiesEvictsExpiredSession(t *testing.T) {
	fake := &providertest.Fake{
		Records: []provider.Activity{{ID: 1, TypeKey: "lap_swimming"}},
	}
	f := newFixture(t, fake)

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	records, err := f.mgr.Activities(context.Background(), "u1", 100)
	if err != nil {
		t.Fatalf("Activities: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	fake.Revoke("a@x.com")
	_, err = f.mgr.Activities(context.Background(), "u1", 100)
	if !errors.Is(err, provider.ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
	if f.mgr.ActiveSessions() != 0 {
		t.Fatal("expired session must be evicted")
	}

	_, err = f.mgr.Activities(context.Background(), "u1", 100)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("got %v, want ErrNotAuthenticated after eviction", err)
	}
}

func TestActivitiesRequiresSession(t *testing.T) {
	f := newFixture(t, &providertest.Fake{})
	_, err := f.mgr.Activities(context.Background(), "nobody", 100)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("got %v, want ErrNotAuthenticated", err)
	}
}

func TestMarkSynced(t *testing.T) {
	f := newFixture(t, &providertest.Fake{})

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := f.mgr.Status("u1"); !got.LastSync.IsZero() {
		t.Fatal("last sync should start zero")
	}

	f.advance(time.Hour)
	f.mgr.MarkSynced("u1")
	got := f.mgr.Status("u1")
	if !got.LastSync.Equal(*f.now) {
		t.Fatalf("got LastSync %v, want %v", got.LastSync, *f.now)
	}

	// MarkSynced for an unknown user must not create a session.
	f.mgr.MarkSynced("stranger")
	if f.mgr.ActiveSessions() != 1 {
		t.Fatal("MarkSynced must not create sessions")
	}
}

func TestStatusNeverMutates(t *testing.T) {
	f := newFixture(t, &providertest.Fake{RequireMFA: true, MFACode: "654321"})

	if _, err := f.mgr.Login(context.Background(), "u1", "a@x.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	before := f.mgr.PendingChallenges()
	for range 3 {
		f.mgr.Status("u1")
	}
	if f.mgr.PendingChallenges() != before {
		t.Fatal("Status must not touch pending challenges")
	}
}

func TestStatusUnknownUser(t *testing.T) {
	f := newFixture(t, &providertest.Fake{})
	status := f.mgr.Status("u3")
	if status.Connected || status.CredentialOnFile {
		t.Fatalf("unexpected status for unknown user: %+v", status)
	}
}
