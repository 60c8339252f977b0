package landing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/landing"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
	"github.com/stellarsaas/stellar/jobs"
	_ "github.com/stellarsaas/stellar/testing"
)

type recordingMailer struct {
	sent []jobs.SendEmailPayload
}

func (m *recordingMailer) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	m.sent = append(m.sent, payload)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

type fixture struct {
	router chi.Router
	repo   *session.MemoryRepository
	mailer *recordingMailer
	sess   *shared.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	repo := session.NewMemoryRepository()
	mailer := &recordingMailer{}
	h := landing.NewHandler(nil, templates, shared.NewCSRFManager("secret"), auth.NewGate(repo, nil), mailer)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return &fixture{router: r, repo: repo, mailer: mailer, sess: &shared.Session{ID: "s1"}}
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(shared.ContextWithSession(req.Context(), f.sess))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestLandingAnonymousNavigation(t *testing.T) {
	f := newFixture(t)
	res := f.serve(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "SaaS Adventure")
	assert.Contains(t, body, "Sign In")
	assert.Contains(t, body, "Get Started")
	assert.NotContains(t, body, "Logout")
	assert.Contains(t, body, "Join Waitlist")
}

func TestLandingAuthenticatedNavigation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.Set(context.Background(), session.Record{Token: "t", User: session.User{ID: "u1", Name: "Jane Roe"}}))

	res := f.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, `href="/dashboard"`)
	assert.Contains(t, body, `href="/profile"`)
	assert.NotContains(t, body, "Sign In")
}

func TestWaitlistJoin(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"email": {"early@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res := f.serve(req)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "early@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "early@example.com", f.sess.Get(landing.WaitlistSessionKey))

	res = f.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, res.Body.String(), "on the list!")
	assert.NotContains(t, res.Body.String(), "Join Waitlist")
}

func TestWaitlistRejectsInvalidEmail(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"email": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res := f.serve(req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Please enter a valid email address")
	assert.Empty(t, f.mailer.sent)
}
