package dashboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/dashboard"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
	_ "github.com/stellarsaas/stellar/testing"
)

func newRouter(t *testing.T, repo session.Repository) chi.Router {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	svc, err := dashboard.NewService()
	require.NoError(t, err)
	h := dashboard.NewHandler(nil, svc, templates, shared.NewCSRFManager("secret"))
	gate := auth.NewGate(repo, nil)

	r := chi.NewRouter()
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(gate.Require)
		h.MountRoutes(r)
	})
	return r
}

func signedIn(t *testing.T) *session.MemoryRepository {
	t.Helper()
	repo := session.NewMemoryRepository()
	require.NoError(t, repo.Set(context.Background(), session.Record{
		Token: "tok",
		User:  session.User{ID: "u1", Name: "John Doe", Email: "john@example.com", CreatedAt: "2024-03-05T10:00:00Z"},
	}))
	return repo
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), &shared.Session{ID: "s1"}))
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestDashboardRequiresRecord(t *testing.T) {
	r := newRouter(t, session.NewMemoryRepository())
	res := get(r, "/dashboard")
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth", res.Header().Get("Location"))
	assert.NotContains(t, res.Body.String(), "Welcome back")
}

func TestDashboardOverview(t *testing.T) {
	r := newRouter(t, signedIn(t))
	res := get(r, "/dashboard")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Welcome back, John!")
	assert.Contains(t, body, "3/5/2024")
	assert.Contains(t, body, "1,247")
	assert.Contains(t, body, "Recent Activity")
	assert.Contains(t, body, "Manage Account")
	assert.Contains(t, body, `class="avatar"`)
	assert.Contains(t, body, "JD")
	assert.Contains(t, body, "Logout")
}

func TestDashboardAnalyticsTab(t *testing.T) {
	r := newRouter(t, signedIn(t))
	res := get(r, "/dashboard?tab=analytics")
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Analytics Dashboard")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "Conversion Performance")
	assert.Contains(t, body, `nav-link active`)
	assert.NotContains(t, body, "Recent Activity")
}

func TestDashboardUsersTab(t *testing.T) {
	r := newRouter(t, signedIn(t))
	res := get(r, "/dashboard?tab=users")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "User management features will be available here.")
}

func TestDashboardUnknownTabFallsBack(t *testing.T) {
	r := newRouter(t, signedIn(t))
	res := get(r, "/dashboard?tab=nope")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Recent Activity")
}
