// Package api exposes the authentication broker over HTTP.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/swimforge/garminbridge/auth"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	mgr    *auth.Manager
	secret string
	log    *slog.Logger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger. If not set, a JSON logger writing
// to stderr is used.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) { a.log = log }
}

// New creates a new API instance. secret is the shared service secret
// checked by the API-key gate.
func New(mgr *auth.Manager, secret string, opts ...Option) *API {
	a := &API{
		mgr:    mgr,
		secret: secret,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return a
}

// Router returns a chi.Router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", a.Root)
	r.Get("/health", a.Health)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))
	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Group(func(r chi.Router) {
		r.Use(a.RequireAPIKey)
		r.Post("/auth/login", a.Login)
		r.Post("/auth/mfa", a.SubmitMFA)
		r.Get("/auth/mfa-status/{userID}", a.MFAStatus)
		r.Post("/auth/logout", a.Logout)
		r.Get("/auth/status/{userID}", a.Status)
		r.Get("/activities/swimming/{userID}", a.SwimmingActivities)
		r.Post("/sync", a.Sync)
	})

	return r
}
