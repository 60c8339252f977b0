package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/stellarsaas/stellar/internal/auth"
	"github.com/stellarsaas/stellar/internal/export"
	"github.com/stellarsaas/stellar/internal/identity"
	"github.com/stellarsaas/stellar/internal/nav"
	"github.com/stellarsaas/stellar/internal/platform/httpx"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
	"github.com/stellarsaas/stellar/internal/view"
	"github.com/stellarsaas/stellar/jobs"
)

// Tab identifiers.
const (
	TabProfile  = "profile"
	TabPrivacy  = "privacy"
	TabSecurity = "security"
)

// Tabs lists the profile sections in display order.
var Tabs = []nav.Tab{
	{ID: TabProfile, Label: "Profile"},
	{ID: TabPrivacy, Label: "Privacy & Data"},
	{ID: TabSecurity, Label: "Security"},
}

// DeleteConfirmation must be typed to request account deletion.
const DeleteConfirmation = "DELETE"

const (
	updateFailure = "Failed to update profile"
	deleteFlash   = "Account deletion request submitted. You will receive a confirmation email."
	notReadyText  = "Your data export is not ready yet"
	privacyPath   = "/profile?tab=" + TabPrivacy
)

// Updater pushes profile edits to the identity service.
type Updater interface {
	UpdateProfile(ctx context.Context, rec session.Record, name, email string) error
}

// Mailer queues transactional mail.
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Handler renders the profile settings page.
type Handler struct {
	logger    *slog.Logger
	updater   Updater
	exporter  *Exporter
	mailer    Mailer
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs a Handler. mailer may be nil.
func NewHandler(logger *slog.Logger, updater Updater, exporter *Exporter, mailer Mailer, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		updater:   updater,
		exporter:  exporter,
		mailer:    mailer,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
		now:       time.Now,
	}
}

// MountRoutes registers profile routes. The router must be behind auth.Gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.save)
	r.Post("/preferences", h.savePreferences)
	r.Route("/export", func(r chi.Router) {
		r.Post("/", h.requestExport)
		r.Get("/status", h.exportStatus)
		r.Get("/download", h.download)
		r.Post("/cancel", h.cancelExport)
	})
	r.Post("/delete", h.deleteAccount)
}

// PageData feeds pages/profile.html.
type PageData struct {
	Tab           string
	Tabs          []nav.Tab
	Editing       bool
	ConfirmDelete bool
	Saved         bool
	Profile       Profile
	Export        export.Status
	SaveError     string
	DeleteError   string
}

// ParseTab normalises the tab query value.
func ParseTab(raw string) string {
	switch raw {
	case TabPrivacy, TabSecurity:
		return raw
	default:
		return TabProfile
	}
}

type profileForm struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	data := PageData{
		Tab:           ParseTab(q.Get("tab")),
		Editing:       q.Get("edit") == "1",
		ConfirmDelete: q.Get("confirm_delete") == "1",
		Profile:       h.profile(r, rec.User),
	}
	h.render(w, r, http.StatusOK, rec, data)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := profileForm{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}
	data := PageData{Tab: TabProfile, Profile: h.profile(r, rec.User)}
	data.Profile.Name, data.Profile.Email = form.Name, form.Email

	if err := h.validator.Struct(form); err != nil {
		data.Editing = true
		data.SaveError = validationMessage(err)
		h.render(w, r, http.StatusBadRequest, rec, data)
		return
	}
	if err := h.updater.UpdateProfile(r.Context(), rec, form.Name, form.Email); err != nil {
		data.SaveError = h.failureMessage(err)
		h.render(w, r, http.StatusBadRequest, rec, data)
		return
	}
	data.Saved = true
	h.render(w, r, http.StatusOK, rec, data)
}

func (h *Handler) savePreferences(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	prefs := LoadPreferences(sess)
	prefs.EmailNotifications = r.PostFormValue("emailNotifications") == "on"
	prefs.MarketingEmails = r.PostFormValue("marketingEmails") == "on"
	if err := SavePreferences(sess, prefs); err != nil {
		h.logger.Error("save preferences", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, privacyPath, http.StatusSeeOther)
}

func (h *Handler) requestExport(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	st, err := h.exporter.Request(r.Context(), h.profile(r, rec.User))
	if err != nil {
		h.logger.Error("request data export", slog.String("user_id", rec.User.ID), slog.Any("error", err))
		h.fail(w, r, err)
		return
	}
	h.logger.Info("data export requested", slog.String("user_id", rec.User.ID), slog.String("request_id", st.RequestID))
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusAccepted, st)
		return
	}
	http.Redirect(w, r, privacyPath, http.StatusSeeOther)
}

func (h *Handler) exportStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	st, err := h.exporter.Status(r.Context(), rec.User.ID)
	if err != nil {
		h.logger.Error("load export status", slog.Any("error", err))
		httpx.RespondError(w, err, "")
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	doc, err := h.exporter.Download(r.Context(), rec.User.ID)
	if err != nil {
		if !errors.Is(err, ErrExportNotReady) {
			h.logger.Error("load export document", slog.Any("error", err))
		}
		httpx.RespondError(w, err, notReadyText)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+FileName(rec.User.ID)+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) cancelExport(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	if err := h.exporter.Cancel(r.Context(), rec.User.ID); err != nil {
		// The stored status is already idle; a late job result is discarded.
		h.logger.Warn("cancel data export", slog.String("user_id", rec.User.ID), slog.Any("error", err))
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, export.Status{State: export.StateIdle})
		return
	}
	http.Redirect(w, r, privacyPath, http.StatusSeeOther)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.record(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(r.PostFormValue("confirm")) != DeleteConfirmation {
		data := PageData{
			Tab:           TabPrivacy,
			ConfirmDelete: true,
			Profile:       h.profile(r, rec.User),
			DeleteError:   `Please type "DELETE" to confirm`,
		}
		h.render(w, r, http.StatusBadRequest, rec, data)
		return
	}

	h.logger.Info("account deletion requested", slog.String("user_id", rec.User.ID))
	if h.mailer != nil {
		_, err := h.mailer.EnqueueSendEmail(r.Context(), jobs.SendEmailPayload{
			To:      rec.User.Email,
			Subject: "Confirm your StellarSaaS account deletion",
			Body:    "We received a request to delete your account and all associated data.",
		})
		if err != nil {
			h.logger.Warn("enqueue deletion mail", slog.Any("error", err))
		}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: deleteFlash})
	}
	http.Redirect(w, r, privacyPath, http.StatusSeeOther)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) (session.Record, bool) {
	rec, ok := auth.RecordFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, auth.SignInPath, http.StatusSeeOther)
	}
	return rec, ok
}

func (h *Handler) profile(r *http.Request, user session.User) Profile {
	return Enrich(user, LoadPreferences(shared.SessionFromContext(r.Context())), h.now())
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, rec session.Record, data PageData) {
	data.Tabs = Tabs
	if data.Tab == TabPrivacy && !data.Saved {
		st, err := h.exporter.Status(r.Context(), rec.User.ID)
		if err != nil {
			h.logger.Warn("load export status", slog.Any("error", err))
		}
		data.Export = st
	}
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	chrome := nav.Build(nav.Params{Page: nav.PageProfile, Authenticated: true, User: &rec.User})
	// The success modal owns the redirect to sign-in.
	chrome.Watch = !data.Saved
	viewData := view.TemplateData{
		Title:       "Profile Settings",
		CSRFToken:   csrfToken,
		Flash:       shared.FlashFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Nav:         chrome,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/profile.html", viewData); err != nil {
		h.logger.Error("render profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		httpx.RespondError(w, err, "")
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// failureMessage maps an update error to the inline text above the form.
func (h *Handler) failureMessage(err error) string {
	var apiErr *identity.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Err != nil {
			h.logger.Warn("identity request failed", slog.Int("status", apiErr.Status), slog.Any("error", apiErr.Err))
		}
		return apiErr.Message
	}
	h.logger.Error("profile update failed", slog.Any("error", err))
	return updateFailure
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "email" {
		return "Please enter a valid email address"
	}
	return "Please fill in all required fields"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
