// Package providertest provides a scripted in-memory Authenticator for
// exercising login flows without touching the network.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/swimforge/garminbridge/provider"
)

// Fake is a scriptable provider.Authenticator. The zero value accepts any
// password and never demands a challenge; tests flip fields to steer the
// flow. All methods are safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	// Password is the only accepted password. Empty accepts anything.
	Password string
	// RequireMFA makes Login return a challenge instead of a client.
	RequireMFA bool
	// MFACode is the only accepted one-time code.
	MFACode string
	// RateLimitAfter cancels the flow with ErrRateLimited once this many
	// wrong codes have been submitted. Zero disables rate limiting.
	RateLimitAfter int
	// Unavailable makes every remote call fail with ErrUnavailable.
	Unavailable bool
	// DisplayName is returned by ProbeIdentity.
	DisplayName string
	// Records is returned by Activities.
	Records []provider.Activity

	badCodes int
	revoked  map[string]bool
}

var _ provider.Authenticator = (*Fake)(nil)

type fakeBlob struct {
	Email string `json:"email"`
}

// Revoke invalidates every credential issued for email: restored clients
// fail ProbeIdentity and live clients fail Activities with ErrSessionExpired.
func (f *Fake) Revoke(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked == nil {
		f.revoked = make(map[string]bool)
	}
	f.revoked[email] = true
}

// BadCodeCount reports how many wrong codes have been submitted.
func (f *Fake) BadCodeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.badCodes
}

// Login implements provider.Authenticator.
func (f *Fake) Login(_ context.Context, email, password string) (provider.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, provider.ErrUnavailable
	}
	if f.Password != "" && password != f.Password {
		return nil, provider.ErrInvalidCredentials
	}
	if f.RequireMFA {
		state, _ := json.Marshal(fakeBlob{Email: email})
		return nil, &provider.ChallengeRequiredError{State: state}
	}
	delete(f.revoked, email)
	return f.client(email), nil
}

// Resume implements provider.Authenticator.
func (f *Fake) Resume(_ context.Context, state provider.ChallengeState, code string) (provider.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, provider.ErrUnavailable
	}
	var blob fakeBlob
	if err := json.Unmarshal(state, &blob); err != nil {
		return nil, fmt.Errorf("bad challenge state: %w", err)
	}
	if code != f.MFACode {
		f.badCodes++
		if f.RateLimitAfter > 0 && f.badCodes >= f.RateLimitAfter {
			return nil, provider.ErrRateLimited
		}
		return nil, provider.ErrInvalidCode
	}
	delete(f.revoked, blob.Email)
	return f.client(blob.Email), nil
}

// Restore implements provider.Authenticator.
func (f *Fake) Restore(_ context.Context, blob []byte) (provider.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, provider.ErrUnavailable
	}
	var b fakeBlob
	if err := json.Unmarshal(blob, &b); err != nil {
		return nil, fmt.Errorf("bad credential blob: %w", err)
	}
	return f.client(b.Email), nil
}

func (f *Fake) client(email string) *FakeClient {
	return &FakeClient{fake: f, email: email}
}

// FakeClient is the provider.Client issued by Fake.
type FakeClient struct {
	fake  *Fake
	email string
}

var _ provider.Client = (*FakeClient)(nil)

// Email reports which account this client was issued for.
func (c *FakeClient) Email() string { return c.email }

// Activities implements provider.Client.
func (c *FakeClient) Activities(_ context.Context, limit int) ([]provider.Activity, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	if c.fake.Unavailable {
		return nil, provider.ErrUnavailable
	}
	if c.fake.revoked[c.email] {
		return nil, provider.ErrSessionExpired
	}
	records := c.fake.Records
	if len(records) > limit {
		records = records[:limit]
	}
	out := make([]provider.Activity, len(records))
	copy(out, records)
	return out, nil
}

// ProbeIdentity implements provider.Client.
func (c *FakeClient) ProbeIdentity(_ context.Context) (string, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	if c.fake.Unavailable {
		return "", provider.ErrUnavailable
	}
	if c.fake.revoked[c.email] {
		return "", provider.ErrSessionExpired
	}
	return c.fake.DisplayName, nil
}

// Serialize implements provider.Client.
func (c *FakeClient) Serialize() ([]byte, error) {
	return json.Marshal(fakeBlob{Email: c.email})
}
