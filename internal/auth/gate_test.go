package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/session"
)

type failingRepo struct {
	session.Repository
}

func (failingRepo) Get(ctx context.Context) (session.Record, error) {
	return session.Record{}, errors.New("redis down")
}

func protected(t *testing.T, gate *auth.Gate) (http.Handler, *bool) {
	t.Helper()
	reached := false
	return gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		rec, ok := auth.RecordFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(rec.User.Name))
	})), &reached
}

func TestGateRedirectsWithoutRecord(t *testing.T) {
	handler, reached := protected(t, auth.NewGate(session.NewMemoryRepository(), nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth", res.Header().Get("Location"))
	assert.False(t, *reached)
}

func TestGatePassesRecordThrough(t *testing.T) {
	repo := session.NewMemoryRepository()
	require.NoError(t, repo.Set(context.Background(), session.Record{Token: "t", User: session.User{ID: "u1", Name: "Jane"}}))
	handler, reached := protected(t, auth.NewGate(repo, nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Jane", res.Body.String())
	assert.True(t, *reached)
}

func TestGateClearsCorruptRecord(t *testing.T) {
	repo := session.NewMemoryRepository()
	repo.SetRaw(`{"token":"t","user":`)
	handler, reached := protected(t, auth.NewGate(repo, nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/profile", nil))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.False(t, *reached)
	assert.False(t, repo.Stored())
}

func TestGateStoreFailureIsServerError(t *testing.T) {
	handler, reached := protected(t, auth.NewGate(failingRepo{}, nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.False(t, *reached)
}

func TestGateCurrent(t *testing.T) {
	repo := session.NewMemoryRepository()
	gate := auth.NewGate(repo, nil)
	_, ok := gate.Current(context.Background())
	assert.False(t, ok)

	require.NoError(t, repo.Set(context.Background(), session.Record{Token: "t", User: session.User{ID: "u1"}}))
	rec, ok := gate.Current(context.Background())
	require.True(t, ok)
	assert.Equal(t, "u1", rec.User.ID)
}

func TestGateCurrentClearsCorruptRecord(t *testing.T) {
	repo := session.NewMemoryRepository()
	repo.SetRaw(`{"token":""}`)
	gate := auth.NewGate(repo, nil)

	_, ok := gate.Current(context.Background())
	assert.False(t, ok)
	assert.False(t, repo.Stored())
}
