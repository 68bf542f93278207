// Package garmin implements the provider capability against the Garmin
// Connect SSO and REST endpoints. All wire-level error classification
// happens here; nothing outside this package inspects Garmin responses.
package garmin

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/swimforge/garminbridge/provider"
)

const (
	defaultSSOBase = "https://sso.garmin.com/sso"
	defaultAPIBase = "https://connectapi.garmin.com"

	requestTimeout = 30 * time.Second
)

// Authenticator implements provider.Authenticator against Garmin Connect.
type Authenticator struct {
	httpClient *http.Client
	ssoBase    string
	apiBase    string
	oauthCfg   *oauth2.Config
}

var _ provider.Authenticator = (*Authenticator)(nil)

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient overrides the HTTP client used for SSO and API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = c }
}

// WithBaseURLs points the authenticator at alternate SSO and API hosts.
// Used by tests and by deployments behind a proxy.
func WithBaseURLs(ssoBase, apiBase string) Option {
	return func(a *Authenticator) {
		a.ssoBase = ssoBase
		a.apiBase = apiBase
		a.oauthCfg = oauthConfig(apiBase)
	}
}

// NewAuthenticator creates an Authenticator against the public Garmin
// Connect endpoints.
func NewAuthenticator(opts ...Option) *Authenticator {
	a := &Authenticator{
		httpClient: &http.Client{Timeout: requestTimeout},
		ssoBase:    defaultSSOBase,
		apiBase:    defaultAPIBase,
		oauthCfg:   oauthConfig(defaultAPIBase),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func oauthConfig(apiBase string) *oauth2.Config {
	return &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  apiBase + "/oauth-service/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
