package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stellarsaas/stellar/internal/session"
)

// SignInPath is where unauthenticated visitors are sent.
const SignInPath = "/auth"

type recordContextKey struct{}

// WithRecord stores the authenticated record in ctx.
func WithRecord(ctx context.Context, rec session.Record) context.Context {
	return context.WithValue(ctx, recordContextKey{}, rec)
}

// RecordFromContext returns the record placed by Gate.Require.
func RecordFromContext(ctx context.Context) (session.Record, bool) {
	rec, ok := ctx.Value(recordContextKey{}).(session.Record)
	return rec, ok
}

// Gate guards protected screens.
type Gate struct {
	repo   session.Repository
	logger *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(repo session.Repository, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{repo: repo, logger: logger}
}

// Require redirects to the sign-in screen unless a valid record is stored.
// A corrupt record is cleared and handled like a missing one.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := g.Check(r.Context())
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(WithRecord(r.Context(), rec)))
		case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrCorruptSession):
			http.Redirect(w, r, SignInPath, http.StatusSeeOther)
		default:
			g.logger.Error("load session record", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}

// Check returns the stored record or the reason there is none.
func (g *Gate) Check(ctx context.Context) (session.Record, error) {
	rec, err := g.repo.Get(ctx)
	if errors.Is(err, session.ErrCorruptSession) {
		g.logger.Warn("discarding corrupt session record", slog.Any("error", err))
		if clearErr := g.repo.Clear(ctx); clearErr != nil {
			g.logger.Warn("clear corrupt session record", slog.Any("error", clearErr))
		}
	}
	return rec, err
}

// Current reports whether the request is authenticated, for public pages. Like
// Require it clears a corrupt record.
func (g *Gate) Current(ctx context.Context) (*session.Record, bool) {
	rec, err := g.Check(ctx)
	if err != nil {
		return nil, false
	}
	return &rec, true
}
