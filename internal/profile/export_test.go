package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarsaas/stellar/internal/export"
	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/jobs"
)

type fakeQueue struct {
	exports    []jobs.ExportPayload
	taskIDs    []string
	cancelled  []string
	mails      []jobs.SendEmailPayload
	enqueueErr error
	cancelErr  error
	onEnqueue  func()
}

func (q *fakeQueue) EnqueueExport(ctx context.Context, taskID string, payload jobs.ExportPayload) (*asynq.TaskInfo, error) {
	if q.enqueueErr != nil {
		return nil, q.enqueueErr
	}
	q.taskIDs = append(q.taskIDs, taskID)
	q.exports = append(q.exports, payload)
	if q.onEnqueue != nil {
		q.onEnqueue()
	}
	return &asynq.TaskInfo{ID: taskID}, nil
}

func (q *fakeQueue) CancelExport(ctx context.Context, taskID string) error {
	q.cancelled = append(q.cancelled, taskID)
	return q.cancelErr
}

func (q *fakeQueue) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	q.mails = append(q.mails, payload)
	return &asynq.TaskInfo{ID: "mail"}, nil
}

func newTestExporter(t *testing.T) (*Exporter, *export.Store, *fakeQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := export.NewStore(client, time.Hour)
	queue := &fakeQueue{}
	exp := NewExporter(store, queue)
	n := 0
	exp.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return exp, store, queue
}

func sampleProfile() Profile {
	user := session.User{
		ID:        "u1",
		Name:      "John Doe",
		Email:     "john@example.com",
		CreatedAt: "2024-03-05T10:00:00Z",
		Extra:     map[string]json.RawMessage{"role": json.RawMessage(`"admin"`)},
	}
	return Enrich(user, DefaultPreferences(), time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC))
}

func TestEnrichAddsDisplayFields(t *testing.T) {
	p := sampleProfile()
	assert.Equal(t, "+44 (786) 123-456", p.Phone)
	assert.Equal(t, "Stellar SaaS", p.Company)
	assert.Equal(t, "Pro", p.Plan)
	assert.Equal(t, "2.3 GB", p.DataUsage.StorageUsed)
	assert.Equal(t, "15,420", p.DataUsage.APICalls)
	assert.Equal(t, 2024, p.Joined().Year())
	assert.True(t, p.Preferences.EmailNotifications)
	assert.False(t, p.Preferences.SMSNotifications)
}

func TestDocumentKeepsServiceFields(t *testing.T) {
	doc, err := sampleProfile().Document()
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(doc, &out))
	assert.Equal(t, "u1", out["id"])
	assert.Equal(t, "admin", out["role"])
	assert.Equal(t, "Pro", out["plan"])
	assert.Contains(t, out, "preferences")
	assert.Contains(t, out, "dataUsage")
}

func TestExporterRequestQueuesTask(t *testing.T) {
	exp, _, queue := newTestExporter(t)
	ctx := context.Background()

	st, err := exp.Request(ctx, sampleProfile())
	require.NoError(t, err)
	assert.Equal(t, export.StateProcessing, st.State)
	assert.Equal(t, "id-1", st.RequestID)
	assert.Equal(t, "id-2", st.TaskID)

	require.Len(t, queue.exports, 1)
	assert.Equal(t, "u1", queue.exports[0].UserID)
	assert.Equal(t, "id-1", queue.exports[0].RequestID)
	assert.Contains(t, string(queue.exports[0].Document), `"company": "Stellar SaaS"`)

	again, err := exp.Request(ctx, sampleProfile())
	require.NoError(t, err)
	assert.Equal(t, st.RequestID, again.RequestID)
	assert.Len(t, queue.exports, 1, "in-flight request is not duplicated")
}

func TestExporterRequestRollsBackOnEnqueueFailure(t *testing.T) {
	exp, store, queue := newTestExporter(t)
	queue.enqueueErr = errors.New("redis down")

	_, err := exp.Request(context.Background(), sampleProfile())
	require.Error(t, err)

	st, err := store.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, export.StateIdle, st.State)
}

func TestExporterCancel(t *testing.T) {
	exp, store, queue := newTestExporter(t)
	ctx := context.Background()

	st, err := exp.Request(ctx, sampleProfile())
	require.NoError(t, err)
	require.NoError(t, exp.Cancel(ctx, "u1"))
	assert.Equal(t, []string{st.TaskID}, queue.cancelled)

	done, err := store.Complete(ctx, "u1", st.RequestID, []byte(`{}`), time.Now())
	require.NoError(t, err)
	assert.False(t, done, "late result of a cancelled export is dropped")

	_, err = exp.Download(ctx, "u1")
	assert.ErrorIs(t, err, ErrExportNotReady)
}

func TestExporterCancelDuringEnqueueCancelsTask(t *testing.T) {
	exp, store, queue := newTestExporter(t)
	ctx := context.Background()
	// The user cancels before the task handle is stored, so Cancel finds no task.
	queue.onEnqueue = func() {
		require.NoError(t, exp.Cancel(ctx, "u1"))
	}

	st, err := exp.Request(ctx, sampleProfile())
	require.NoError(t, err)
	assert.Equal(t, export.StateIdle, st.State)
	assert.Equal(t, queue.taskIDs, queue.cancelled)

	stored, err := store.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, export.StateIdle, stored.State)
}

func TestExporterCancelIdleSkipsQueue(t *testing.T) {
	exp, _, queue := newTestExporter(t)
	require.NoError(t, exp.Cancel(context.Background(), "u1"))
	assert.Empty(t, queue.cancelled)
}

func TestExporterDownloadWhenReady(t *testing.T) {
	exp, store, _ := newTestExporter(t)
	ctx := context.Background()

	st, err := exp.Request(ctx, sampleProfile())
	require.NoError(t, err)
	done, err := store.Complete(ctx, "u1", st.RequestID, []byte(`{"id":"u1"}`), time.Now())
	require.NoError(t, err)
	require.True(t, done)

	doc, err := exp.Download(ctx, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1"}`, string(doc))
	assert.Equal(t, "user-data-u1.json", FileName("u1"))
}
