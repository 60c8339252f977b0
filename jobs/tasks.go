package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskPrivacyExport prepares a personal data export.
	TaskPrivacyExport = "privacy:export"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ExportPayload carries one export request. Document is the prepared JSON
// published to the user once the processing delay has elapsed.
type ExportPayload struct {
	UserID    string          `json:"user_id"`
	RequestID string          `json:"request_id"`
	Document  json.RawMessage `json:"document"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewExportTask constructs a privacy export task.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrivacyExport, data), nil
}

// MailHandler processes TaskTypeSendEmail tasks. Delivery is a log line until
// an SMTP relay is configured.
type MailHandler struct {
	Logger *slog.Logger
}

// Handle processes one mail task.
func (h MailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("send email", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}
