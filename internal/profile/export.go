package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/stellarsaas/stellar/internal/export"
	"github.com/stellarsaas/stellar/internal/platform/httpx"
	"github.com/stellarsaas/stellar/jobs"
)

// ErrExportNotReady is returned when a download is requested before the
// export job finished.
var ErrExportNotReady = fmt.Errorf("profile: export not ready: %w", httpx.ErrConflict)

// Queue is the background job surface used by the privacy tab.
type Queue interface {
	EnqueueExport(ctx context.Context, taskID string, payload jobs.ExportPayload) (*asynq.TaskInfo, error)
	CancelExport(ctx context.Context, taskID string) error
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Exporter drives the idle, processing, ready cycle of a data export.
type Exporter struct {
	store *export.Store
	queue Queue
	now   func() time.Time
	newID func() string
}

// NewExporter constructs an Exporter.
func NewExporter(store *export.Store, queue Queue) *Exporter {
	return &Exporter{
		store: store,
		queue: queue,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Request starts preparing p for download. A request already in flight is
// left untouched.
func (e *Exporter) Request(ctx context.Context, p Profile) (export.Status, error) {
	current, err := e.store.Status(ctx, p.ID)
	if err != nil {
		return export.Status{}, err
	}
	if current.State == export.StateProcessing {
		return current, nil
	}
	doc, err := p.Document()
	if err != nil {
		return export.Status{}, fmt.Errorf("profile: build export: %w", err)
	}
	st := export.Status{RequestID: e.newID(), RequestedAt: e.now().UTC()}
	if err := e.store.Begin(ctx, p.ID, st); err != nil {
		return export.Status{}, err
	}
	taskID := e.newID()
	_, err = e.queue.EnqueueExport(ctx, taskID, jobs.ExportPayload{UserID: p.ID, RequestID: st.RequestID, Document: doc})
	if err != nil {
		_, _ = e.store.Reset(ctx, p.ID)
		return export.Status{}, fmt.Errorf("profile: enqueue export: %w", err)
	}
	attached, err := e.store.AttachTask(ctx, p.ID, st.RequestID, taskID)
	if err != nil {
		return export.Status{}, err
	}
	if !attached {
		// Cancelled before the handle was stored; nobody else can reach the task.
		if err := e.queue.CancelExport(ctx, taskID); err != nil {
			return export.Status{}, fmt.Errorf("profile: cancel orphaned export: %w", err)
		}
	}
	return e.store.Status(ctx, p.ID)
}

// Status reports the current export state.
func (e *Exporter) Status(ctx context.Context, userID string) (export.Status, error) {
	return e.store.Status(ctx, userID)
}

// Cancel returns to idle and stops the queued task.
func (e *Exporter) Cancel(ctx context.Context, userID string) error {
	prev, err := e.store.Reset(ctx, userID)
	if err != nil {
		return err
	}
	if prev.State != export.StateProcessing || prev.TaskID == "" {
		return nil
	}
	if err := e.queue.CancelExport(ctx, prev.TaskID); err != nil {
		return fmt.Errorf("profile: cancel export task: %w", err)
	}
	return nil
}

// Download returns the prepared document.
func (e *Exporter) Download(ctx context.Context, userID string) ([]byte, error) {
	doc, err := e.store.Document(ctx, userID)
	if errors.Is(err, export.ErrNotReady) {
		return nil, ErrExportNotReady
	}
	return doc, err
}

// FileName is the attachment name of a user's export.
func FileName(userID string) string {
	return "user-data-" + userID + ".json"
}
