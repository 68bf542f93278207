package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/swimforge/garminbridge/provider"
)

func TestChallengeStoreResolve(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewChallengeStore(600 * time.Second)

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Resolve("nobody", base)
		if !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("got %v, want ErrChallengeNotFound", err)
		}
	})

	t.Run("WithinTTL", func(t *testing.T) {
		store.Begin("u1", provider.ChallengeState("state-1"), "a@x.com", base)
		pc, err := store.Resolve("u1", base.Add(599*time.Second))
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if string(pc.State) != "state-1" {
			t.Fatalf("got state %q, want %q", pc.State, "state-1")
		}
		if pc.Email != "a@x.com" {
			t.Fatalf("got email %q, want %q", pc.Email, "a@x.com")
		}
		// Resolve must not remove the entry; retries stay possible.
		if _, err := store.Resolve("u1", base.Add(599*time.Second)); err != nil {
			t.Fatalf("second Resolve: %v", err)
		}
	})

	t.Run("ExpiredIsPurged", func(t *testing.T) {
		store.Begin("u2", provider.ChallengeState("state-2"), "b@x.com", base)
		_, err := store.Resolve("u2", base.Add(601*time.Second))
		if !errors.Is(err, ErrChallengeExpired) {
			t.Fatalf("got %v, want ErrChallengeExpired", err)
		}
		// A second access reports absence, not expiry: the entry is gone.
		_, err = store.Resolve("u2", base.Add(601*time.Second))
		if !errors.Is(err, ErrChallengeNotFound) {
			t.Fatalf("got %v, want ErrChallengeNotFound after purge", err)
		}
	})

	t.Run("ExactTTLBoundaryStillResumable", func(t *testing.T) {
		store.Begin("u3", provider.ChallengeState("state-3"), "c@x.com", base)
		if _, err := store.Resolve("u3", base.Add(600*time.Second)); err != nil {
			t.Fatalf("Resolve at exactly TTL: %v", err)
		}
	})
}

func TestChallengeStoreBeginOverwrites(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewChallengeStore(600 * time.Second)

	store.Begin("u1", provider.ChallengeState("old"), "a@x.com", base)
	store.Begin("u1", provider.ChallengeState("new"), "a@x.com", base.Add(time.Minute))

	pc, err := store.Resolve("u1", base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(pc.State) != "new" {
		t.Fatalf("got state %q, want %q", pc.State, "new")
	}
	if store.Len() != 1 {
		t.Fatalf("got %d entries, want 1", store.Len())
	}
}

func TestChallengeStoreCompleteAndCancel(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewChallengeStore(600 * time.Second)

	store.Begin("u1", provider.ChallengeState("s"), "a@x.com", base)
	store.Complete("u1")
	if _, err := store.Resolve("u1", base); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("got %v, want ErrChallengeNotFound after Complete", err)
	}

	store.Begin("u2", provider.ChallengeState("s"), "b@x.com", base)
	if !store.Cancel("u2") {
		t.Fatal("Cancel should report an entry was removed")
	}
	if store.Cancel("u2") {
		t.Fatal("second Cancel should report nothing removed")
	}
}

func TestChallengeStoreRemaining(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewChallengeStore(600 * time.Second)

	if _, ok := store.Remaining("u1", base); ok {
		t.Fatal("expected no pending challenge")
	}

	store.Begin("u1", provider.ChallengeState("s"), "a@x.com", base)
	left, ok := store.Remaining("u1", base.Add(100*time.Second))
	if !ok {
		t.Fatal("expected pending challenge")
	}
	if left != 500*time.Second {
		t.Fatalf("got %v remaining, want 500s", left)
	}

	// Past the TTL the entry is purged.
	if _, ok := store.Remaining("u1", base.Add(601*time.Second)); ok {
		t.Fatal("expected expired challenge to be absent")
	}
	if store.Len() != 0 {
		t.Fatalf("got %d entries, want 0 after purge", store.Len())
	}
}

func TestChallengeStoreSweep(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewChallengeStore(600 * time.Second)

	store.Begin("old-1", provider.ChallengeState("s"), "a@x.com", base)
	store.Begin("old-2", provider.ChallengeState("s"), "b@x.com", base.Add(time.Second))
	store.Begin("fresh", provider.ChallengeState("s"), "c@x.com", base.Add(500*time.Second))

	removed := store.Sweep(base.Add(700 * time.Second))
	if removed != 2 {
		t.Fatalf("got %d removed, want 2", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("got %d entries, want 1", store.Len())
	}
	if _, err := store.Resolve("fresh", base.Add(700*time.Second)); err != nil {
		t.Fatalf("fresh entry should survive sweep: %v", err)
	}
}

func TestChallengeStoreDefaultTTL(t *testing.T) {
	store := NewChallengeStore(0)
	if store.ttl != DefaultChallengeTTL {
		t.Fatalf("got ttl %v, want %v", store.ttl, DefaultChallengeTTL)
	}
}
