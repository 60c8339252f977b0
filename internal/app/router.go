package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/dashboard"
	"github.com/stellarsaas/stellar/internal/landing"
	"github.com/stellarsaas/stellar/internal/observability"
	"github.com/stellarsaas/stellar/internal/platform/httpx"
	"github.com/stellarsaas/stellar/internal/profile"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/jobs"
	"github.com/stellarsaas/stellar/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	Gate             *auth.Gate
	LandingHandler   *landing.Handler
	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	ProfileHandler   *profile.Handler
	SessionEvents    http.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	// Ping reports backing store health for /healthz. Optional.
	Ping func(ctx context.Context) error
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ping != nil {
			if err := params.Ping(r.Context()); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	params.LandingHandler.MountRoutes(r)
	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Group(func(r chi.Router) {
		r.Use(params.Gate.Require)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		r.Route("/profile", params.ProfileHandler.MountRoutes)
	})
	if params.SessionEvents != nil {
		r.Method(http.MethodGet, SessionEventsPath, params.SessionEvents)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
