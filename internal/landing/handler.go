// Package landing serves the public marketing page and the early-access waitlist.
package landing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/stellarsaas/stellar/internal/nav"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
	"github.com/stellarsaas/stellar/jobs"
)

// WaitlistSessionKey marks a browser that already joined the waitlist.
const WaitlistSessionKey = "waitlist"

// Mailer queues transactional mail.
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Authenticator reports the signed-in record of a request, if any.
type Authenticator interface {
	Current(ctx context.Context) (*session.Record, bool)
}

// Handler renders the landing page.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	auth      Authenticator
	mailer    Mailer
	validator *validator.Validate
}

// NewHandler constructs a Handler. mailer may be nil.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, auth Authenticator, mailer Mailer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		templates: templates,
		csrf:      csrf,
		auth:      auth,
		mailer:    mailer,
		validator: validator.New(),
	}
}

// MountRoutes registers landing routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/waitlist", h.joinWaitlist)
}

// Feature is one selling point card.
type Feature struct {
	Icon  string
	Title string
	Body  string
}

// PageData feeds pages/landing.html.
type PageData struct {
	GetStartedHref string
	Subscribed     bool
	Email          string
	Error          string
	Features       []Feature
}

var features = []Feature{
	{Icon: "🚀", Title: "Fast Launch", Body: "Get your SaaS up and running in minutes, not months. Our platform handles the heavy lifting."},
	{Icon: "📊", Title: "Analytics", Body: "Comprehensive analytics and insights to help you make data-driven decisions."},
	{Icon: "🔒", Title: "Secure", Body: "Enterprise-grade security with GDPR compliance and data protection built-in."},
}

type waitlistForm struct {
	Email string `validate:"required,email"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	data := PageData{}
	if sess != nil {
		_, data.Subscribed = sess.Lookup(WaitlistSessionKey)
	}
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) joinWaitlist(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := waitlistForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		msg := "Please enter your email"
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "email" {
			msg = "Please enter a valid email address"
		}
		h.render(w, r, http.StatusBadRequest, PageData{Email: form.Email, Error: msg})
		return
	}

	if h.mailer != nil {
		_, err := h.mailer.EnqueueSendEmail(r.Context(), jobs.SendEmailPayload{
			To:      form.Email,
			Subject: "You're on the StellarSaaS waitlist",
			Body:    "Thanks for your interest. We'll notify you when we launch.",
		})
		if err != nil {
			h.logger.Warn("enqueue waitlist mail", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Set(WaitlistSessionKey, form.Email)
	}
	http.Redirect(w, r, "/#early-access", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	rec, authed := h.auth.Current(r.Context())
	params := nav.Params{Page: nav.PageLanding, Authenticated: authed}
	if rec != nil {
		params.User = &rec.User
	}
	data.GetStartedHref = nav.GetStartedHref(authed)
	data.Features = features
	viewData := view.TemplateData{
		Title:       "Launch Your SaaS Adventure",
		CSRFToken:   csrfToken,
		Flash:       shared.FlashFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Nav:         nav.Build(params),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/landing.html", viewData); err != nil {
		h.logger.Error("render landing", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
