package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/nav"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
)

// Tab identifiers.
const (
	TabOverview  = "overview"
	TabAnalytics = "analytics"
	TabUsers     = "users"
)

// Tabs lists the dashboard sections in display order.
var Tabs = []nav.Tab{
	{ID: TabOverview, Label: "Overview"},
	{ID: TabAnalytics, Label: "Analytics"},
	{ID: TabUsers, Label: "Users"},
}

// Handler renders the dashboard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes. The router must be behind auth.Gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

// PageData feeds pages/dashboard.html.
type PageData struct {
	Tab       string
	FirstName string
	User      session.User
	JoinedAt  time.Time
	Overview  Overview
	Analytics Analytics
}

// ParseTab normalises the tab query value.
func ParseTab(raw string) string {
	switch raw {
	case TabAnalytics, TabUsers:
		return raw
	default:
		return TabOverview
	}
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	rec, ok := auth.RecordFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, auth.SignInPath, http.StatusSeeOther)
		return
	}
	tab := ParseTab(r.URL.Query().Get("tab"))
	data := PageData{Tab: tab, FirstName: rec.User.FirstName(), User: rec.User}
	if joined, ok := rec.User.Joined(); ok {
		data.JoinedAt = joined
	}
	switch tab {
	case TabOverview:
		data.Overview = h.service.Overview()
	case TabAnalytics:
		analytics, err := h.service.Analytics(r.Context())
		if err != nil {
			h.logger.Error("build analytics", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		data.Analytics = analytics
	}

	csrfToken, _ := h.csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	viewData := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       shared.FlashFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Nav: nav.Build(nav.Params{
			Page:          nav.PageDashboard,
			Authenticated: true,
			User:          &rec.User,
			Tabs:          Tabs,
			ActiveTab:     tab,
		}),
		Data: data,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
