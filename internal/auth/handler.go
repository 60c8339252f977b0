package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stellarsaas/stellar/internal/identity"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
)

// Form modes.
const (
	ModeSignIn = "signin"
	ModeSignUp = "signup"
)

const (
	genericFailure   = "An error occurred"
	passwordMismatch = "Passwords do not match"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showForm)
	r.Post("/login", h.handleSignIn)
	r.Post("/signup", h.handleSignUp)
	r.Post("/logout", h.handleLogout)
}

type signInForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type signUpForm struct {
	Name            string `validate:"required"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required"`
}

// PageData feeds pages/auth.html.
type PageData struct {
	Mode  string
	Name  string
	Email string
	Error string
}

// SignUp reports whether the page shows the registration form.
func (d PageData) SignUp() bool {
	return d.Mode == ModeSignUp
}

// ToggleHref links to the other mode with an empty form.
func (d PageData) ToggleHref() string {
	if d.SignUp() {
		return SignInPath + "?mode=" + ModeSignIn
	}
	return SignInPath + "?mode=" + ModeSignUp
}

func parseMode(raw string) string {
	if raw == ModeSignUp {
		return ModeSignUp
	}
	return ModeSignIn
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, PageData{Mode: parseMode(r.URL.Query().Get("mode"))})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := signInForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	data := PageData{Mode: ModeSignIn, Email: form.Email}
	if err := h.validator.Struct(form); err != nil {
		data.Error = validationMessage(err)
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	if _, err := h.service.SignIn(r.Context(), form.Email, form.Password); err != nil {
		data.Error = h.failureMessage(err)
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	h.signedIn(w, r)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := signUpForm{
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	data := PageData{Mode: ModeSignUp, Name: form.Name, Email: form.Email}
	if err := h.validator.Struct(form); err != nil {
		data.Error = validationMessage(err)
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	_, err := h.service.SignUp(r.Context(), SignUpInput{
		Name:            form.Name,
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
	})
	if err != nil {
		data.Error = h.failureMessage(err)
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	h.signedIn(w, r)
}

func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request) {
	if _, err := h.csrf.Rotate(r.Context(), shared.SessionFromContext(r.Context())); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		h.logger.Warn("clear session on logout", slog.Any("error", err))
	}
	if _, err := h.csrf.Rotate(r.Context(), shared.SessionFromContext(r.Context())); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
	http.Redirect(w, r, SignInPath, http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	title := "Sign In"
	if data.SignUp() {
		title = "Sign Up"
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       shared.FlashFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/auth.html", viewData); err != nil {
		h.logger.Error("render auth", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// failureMessage maps a service error to the inline text shown under the form.
func (h *Handler) failureMessage(err error) string {
	var apiErr *identity.APIError
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		return passwordMismatch
	case errors.As(err, &apiErr):
		if apiErr.Err != nil {
			h.logger.Warn("identity request failed", slog.Int("status", apiErr.Status), slog.Any("error", apiErr.Err))
		}
		return apiErr.Message
	default:
		h.logger.Error("auth flow failed", slog.Any("error", err))
		return genericFailure
	}
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return genericFailure
	}
	first := fieldErrs[0]
	if first.Tag() == "email" {
		return "Please enter a valid email address"
	}
	return "Please fill in all required fields"
}
