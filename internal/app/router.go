package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pmws/pmws/internal/auth"
	"github.com/pmws/pmws/internal/observability"
	"github.com/pmws/pmws/internal/platform/httpx"
	"github.com/pmws/pmws/internal/roles"
	"github.com/pmws/pmws/internal/users"
	"github.com/pmws/pmws/jobs"
)

// APIPrefix is the versioned mount point of the public API.
const APIPrefix = "/api/v1.0"

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	RolesHandler *roles.Handler
	JobHandler   *jobs.Handler
	Metrics      *observability.Metrics
	// Checks are probed by /healthz, keyed by component name.
	Checks map[string]Pinger
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/healthz", healthz(params.Checks))

	r.Route(APIPrefix, func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/user", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/properties", params.RolesHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func healthz(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}
		if !healthy {
			httpx.Fail(w, http.StatusServiceUnavailable, "Service degraded", status)
			return
		}
		httpx.Respond(w, http.StatusOK, "Service healthy", status)
	}
}
