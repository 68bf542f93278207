package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/swimforge/garminbridge/provider"
)

// ssoResult is the interesting subset of the SSO signin response.
type ssoResult struct {
	State         string `json:"state"`
	ServiceTicket string `json:"serviceTicket"`
	CSRFToken     string `json:"csrfToken"`
}

const ssoStateMFARequired = "MFA_REQUIRED"

// challengeState is the serialized form of provider.ChallengeState used by
// this implementation. Cookies carry the SSO flow session across the two
// legs of the handshake.
type challengeState struct {
	CSRFToken string   `json:"csrf_token"`
	Cookies   []string `json:"cookies"`
}

// Login implements provider.Authenticator.
func (a *Authenticator) Login(ctx context.Context, email, password string) (provider.Client, error) {
	form := url.Values{
		"username": {email},
		"password": {password},
		"embed":    {"false"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.ssoBase+"/signin", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError("signin", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode the flow state below.
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, provider.ErrInvalidCredentials
	case resp.StatusCode == http.StatusLocked:
		// Garmin reports a locked account the same way as bad credentials
		// from the user's point of view: the password round-trip failed.
		return nil, provider.ErrInvalidCredentials
	default:
		return nil, statusError("signin", resp.StatusCode)
	}

	var result ssoResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding signin response: %w", err)
	}

	if result.State == ssoStateMFARequired {
		state, err := json.Marshal(challengeState{
			CSRFToken: result.CSRFToken,
			Cookies:   resp.Header.Values("Set-Cookie"),
		})
		if err != nil {
			return nil, fmt.Errorf("encoding challenge state: %w", err)
		}
		return nil, &provider.ChallengeRequiredError{State: state}
	}
	if result.ServiceTicket == "" {
		return nil, provider.ErrInvalidCredentials
	}

	return a.exchange(ctx, result.ServiceTicket)
}

// Resume implements provider.Authenticator.
func (a *Authenticator) Resume(ctx context.Context, state provider.ChallengeState, code string) (provider.Client, error) {
	var cs challengeState
	if err := json.Unmarshal(state, &cs); err != nil {
		return nil, fmt.Errorf("decoding challenge state: %w", err)
	}

	form := url.Values{
		"mfa-code": {code},
		"embed":    {"false"},
		"_csrf":    {cs.CSRFToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.ssoBase+"/verifyMFA/loginToken", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for _, c := range cs.Cookies {
		req.Header.Add("Cookie", cookiePair(c))
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, transportError("verify mfa", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, provider.ErrInvalidCode
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited
	default:
		return nil, statusError("verify mfa", resp.StatusCode)
	}

	var result ssoResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding mfa response: %w", err)
	}
	if result.ServiceTicket == "" {
		return nil, provider.ErrInvalidCode
	}

	return a.exchange(ctx, result.ServiceTicket)
}

// Restore implements provider.Authenticator.
func (a *Authenticator) Restore(ctx context.Context, blob []byte) (provider.Client, error) {
	var cred credentialBlob
	if err := json.Unmarshal(blob, &cred); err != nil {
		return nil, fmt.Errorf("decoding credential blob: %w", err)
	}
	if cred.Version != credentialBlobVersion {
		return nil, fmt.Errorf("unsupported credential blob version %d", cred.Version)
	}
	if cred.Token == nil || cred.Token.AccessToken == "" {
		return nil, fmt.Errorf("credential blob has no token")
	}
	return a.newClient(ctx, cred.Token), nil
}

// exchange trades an SSO service ticket for an OAuth2 bearer token.
func (a *Authenticator) exchange(ctx context.Context, ticket string) (provider.Client, error) {
	token, err := a.oauthCfg.Exchange(ctx, ticket,
		oauth2.SetAuthURLParam("grant_type", "service_ticket"),
		oauth2.SetAuthURLParam("ticket", ticket))
	if err != nil {
		return nil, transportError("token exchange", err)
	}
	return a.newClient(ctx, token), nil
}

func (a *Authenticator) newClient(ctx context.Context, token *oauth2.Token) *Client {
	return &Client{
		httpClient: a.httpClient,
		apiBase:    a.apiBase,
		source:     a.oauthCfg.TokenSource(ctx, token),
		token:      token,
	}
}

// cookiePair strips Set-Cookie attributes, keeping only name=value.
func cookiePair(setCookie string) string {
	if i := strings.IndexByte(setCookie, ';'); i >= 0 {
		return setCookie[:i]
	}
	return setCookie
}
