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
	"github.com/stellarsaas/stellar/internal/identity"
	"github.com/stellarsaas/stellar/internal/session"
)

type stubRemote struct {
	result     identity.AuthResult
	err        error
	signIns    int
	signUps    int
	updates    int
	lastUpdate identity.ProfileUpdate
	lastToken  string
}

func (s *stubRemote) SignIn(ctx context.Context, creds identity.Credentials) (identity.AuthResult, error) {
	s.signIns++
	return s.result, s.err
}

func (s *stubRemote) SignUp(ctx context.Context, reg identity.Registration) (identity.AuthResult, error) {
	s.signUps++
	return s.result, s.err
}

func (s *stubRemote) UpdateProfile(ctx context.Context, userID, token string, update identity.ProfileUpdate) (string, error) {
	s.updates++
	s.lastUpdate = update
	s.lastToken = token
	return "", s.err
}

type countingObserver struct {
	outcomes map[string]int
}

func (c *countingObserver) ObserveAuth(action, outcome string) {
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[action+":"+outcome]++
}

func okResult() identity.AuthResult {
	return identity.AuthResult{Token: "tok-1", User: session.User{ID: "u1", Name: "Jane Roe", Email: "jane@example.com"}}
}

func TestServiceSignInStoresRecord(t *testing.T) {
	remote := &stubRemote{result: okResult()}
	repo := session.NewMemoryRepository()
	observer := &countingObserver{}
	svc := auth.NewService(remote, repo, observer)

	rec, err := svc.SignIn(context.Background(), "jane@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", rec.Token)
	assert.False(t, rec.SignedInAt.IsZero())

	stored, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.User.ID)
	assert.Equal(t, "tok-1", stored.Token)
	assert.Equal(t, 1, repo.Writes())
	assert.Equal(t, 1, observer.outcomes["signin:success"])
}

func TestServiceSignInFailureStoresNothing(t *testing.T) {
	remote := &stubRemote{err: &identity.APIError{Status: 401, Message: "Invalid credentials"}}
	repo := session.NewMemoryRepository()
	svc := auth.NewService(remote, repo, nil)

	_, err := svc.SignIn(context.Background(), "jane@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.False(t, repo.Stored())
	assert.Zero(t, repo.Writes())
}

func TestServiceSignUpMismatchSkipsRemote(t *testing.T) {
	remote := &stubRemote{result: okResult()}
	repo := session.NewMemoryRepository()
	svc := auth.NewService(remote, repo, nil)

	_, err := svc.SignUp(context.Background(), auth.SignUpInput{
		Name: "Jane", Email: "jane@example.com", Password: "one", ConfirmPassword: "two",
	})
	require.ErrorIs(t, err, auth.ErrPasswordMismatch)
	assert.Zero(t, remote.signUps)
	assert.False(t, repo.Stored())
}

func TestServiceSignUpStoresRecord(t *testing.T) {
	remote := &stubRemote{result: okResult()}
	repo := session.NewMemoryRepository()
	svc := auth.NewService(remote, repo, nil)

	_, err := svc.SignUp(context.Background(), auth.SignUpInput{
		Name: "Jane", Email: "jane@example.com", Password: "same", ConfirmPassword: "same",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.signUps)
	assert.True(t, repo.Stored())
}

func TestServiceUpdateProfileClearsSession(t *testing.T) {
	remote := &stubRemote{}
	repo := session.NewMemoryRepository()
	svc := auth.NewService(remote, repo, nil)
	rec := session.Record{Token: "tok-1", User: session.User{ID: "u1"}}
	require.NoError(t, repo.Set(context.Background(), rec))

	require.NoError(t, svc.UpdateProfile(context.Background(), rec, "Jane Doe", "jd@example.com"))
	assert.Equal(t, "tok-1", remote.lastToken)
	assert.Equal(t, identity.ProfileUpdate{Name: "Jane Doe", Email: "jd@example.com"}, remote.lastUpdate)
	assert.False(t, repo.Stored())
}

func TestServiceUpdateProfileClearsSessionForBodylessSuccess(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusOK} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(status)
			if status == http.StatusOK {
				_, _ = w.Write([]byte("<p>ok</p>"))
			}
		}))
		repo := session.NewMemoryRepository()
		svc := auth.NewService(identity.NewClient(srv.URL, srv.Client()), repo, nil)
		rec := session.Record{Token: "tok-1", User: session.User{ID: "u1"}}
		require.NoError(t, repo.Set(context.Background(), rec))

		require.NoError(t, svc.UpdateProfile(context.Background(), rec, "Jane Doe", "jd@example.com"), "status %d", status)
		assert.False(t, repo.Stored(), "status %d", status)
		srv.Close()
	}
}

func TestServiceUpdateProfileFailureKeepsSession(t *testing.T) {
	remote := &stubRemote{err: &identity.APIError{Status: 500, Message: "Failed to update profile"}}
	repo := session.NewMemoryRepository()
	svc := auth.NewService(remote, repo, nil)
	rec := session.Record{Token: "tok-1", User: session.User{ID: "u1"}}
	require.NoError(t, repo.Set(context.Background(), rec))

	err := svc.UpdateProfile(context.Background(), rec, "Jane Doe", "jd@example.com")
	var apiErr *identity.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, repo.Stored())
}

func TestServiceLogoutClears(t *testing.T) {
	repo := session.NewMemoryRepository()
	svc := auth.NewService(&stubRemote{}, repo, nil)
	require.NoError(t, repo.Set(context.Background(), session.Record{Token: "t", User: session.User{ID: "u"}}))

	require.NoError(t, svc.Logout(context.Background()))
	_, err := repo.Get(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)
}
