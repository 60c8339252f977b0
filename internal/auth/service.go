package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stellarsaas/stellar/internal/identity"
	"github.com/stellarsaas/stellar/internal/session"
)

// ErrPasswordMismatch is returned when sign-up confirmation differs from the password.
var ErrPasswordMismatch = errors.New("auth: passwords do not match")

// Remote is the identity service contract used by the auth flows.
type Remote interface {
	SignIn(ctx context.Context, creds identity.Credentials) (identity.AuthResult, error)
	SignUp(ctx context.Context, reg identity.Registration) (identity.AuthResult, error)
	UpdateProfile(ctx context.Context, userID, token string, update identity.ProfileUpdate) (string, error)
}

// Observer records auth outcomes. observability.Metrics satisfies it.
type Observer interface {
	ObserveAuth(action, outcome string)
}

// SignUpInput carries the sign-up form.
type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Service runs sign-in, sign-up, profile update and logout, writing results
// through to the session repository.
type Service struct {
	remote   Remote
	repo     session.Repository
	observer Observer
	now      func() time.Time
}

// NewService constructs a Service. observer may be nil.
func NewService(remote Remote, repo session.Repository, observer Observer) *Service {
	return &Service{remote: remote, repo: repo, observer: observer, now: time.Now}
}

// SignIn authenticates and stores the resulting session record.
func (s *Service) SignIn(ctx context.Context, email, password string) (session.Record, error) {
	result, err := s.remote.SignIn(ctx, identity.Credentials{Email: email, Password: password})
	if err != nil {
		s.observe("signin", err)
		return session.Record{}, err
	}
	rec, err := s.store(ctx, result)
	s.observe("signin", err)
	return rec, err
}

// SignUp registers an account. A confirmation mismatch fails before any
// request is made.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (session.Record, error) {
	if in.Password != in.ConfirmPassword {
		s.observe("signup", ErrPasswordMismatch)
		return session.Record{}, ErrPasswordMismatch
	}
	result, err := s.remote.SignUp(ctx, identity.Registration{Name: in.Name, Email: in.Email, Password: in.Password})
	if err != nil {
		s.observe("signup", err)
		return session.Record{}, err
	}
	rec, err := s.store(ctx, result)
	s.observe("signup", err)
	return rec, err
}

// UpdateProfile saves name and email remotely, then clears the session so
// the user signs in again with the refreshed record.
func (s *Service) UpdateProfile(ctx context.Context, rec session.Record, name, email string) error {
	_, err := s.remote.UpdateProfile(ctx, rec.User.ID, rec.Token, identity.ProfileUpdate{Name: name, Email: email})
	s.observe("profile_update", err)
	if err != nil {
		return err
	}
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("auth: clear session after profile update: %w", err)
	}
	return nil
}

// Logout clears the stored record.
func (s *Service) Logout(ctx context.Context) error {
	return s.repo.Clear(ctx)
}

func (s *Service) store(ctx context.Context, result identity.AuthResult) (session.Record, error) {
	rec := session.Record{Token: result.Token, User: result.User, SignedInAt: s.now().UTC()}
	if err := s.repo.Set(ctx, rec); err != nil {
		return session.Record{}, fmt.Errorf("auth: store session: %w", err)
	}
	return rec, nil
}

func (s *Service) observe(action string, err error) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.observer.ObserveAuth(action, outcome)
}
