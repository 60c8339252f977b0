package export

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestStatusDefaultsToIdle(t *testing.T) {
	store, _ := newTestStore(t)
	st, err := store.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.State)

	_, err = store.Document(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestExportLifecycle(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "u1", Status{RequestID: "r1"}))
	attached, err := store.AttachTask(ctx, "u1", "r1", "task-1")
	require.NoError(t, err)
	assert.True(t, attached)
	st, err := store.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, st.State)
	assert.Equal(t, "task-1", st.TaskID)

	_, err = store.Document(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotReady)

	done, err := store.Complete(ctx, "u1", "r1", []byte(`{"id":"u1"}`), time.Now())
	require.NoError(t, err)
	assert.True(t, done)

	doc, err := store.Document(ctx, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1"}`, string(doc))
	assert.True(t, mr.Exists("export:u1:data"))
	assert.Greater(t, mr.TTL("export:u1"), time.Duration(0))
}

func TestCompleteIgnoresCancelledRequest(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "u1", Status{RequestID: "r1"}))
	prev, err := store.Reset(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "r1", prev.RequestID)

	done, err := store.Complete(ctx, "u1", "r1", []byte(`{}`), time.Now())
	require.NoError(t, err)
	assert.False(t, done)
	assert.False(t, mr.Exists("export:u1:data"))
}

func TestCompleteIgnoresSupersededRequest(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, "u1", Status{RequestID: "r1"}))
	require.NoError(t, store.Begin(ctx, "u1", Status{RequestID: "r2"}))

	done, err := store.Complete(ctx, "u1", "r1", []byte(`{}`), time.Now())
	require.NoError(t, err)
	assert.False(t, done)

	attached, err := store.AttachTask(ctx, "u1", "r1", "stale")
	require.NoError(t, err)
	assert.False(t, attached)
	st, err := store.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, st.TaskID)
}

func TestAttachTaskLosesToConcurrentReset(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Begin(ctx, "u1", Status{RequestID: "r1"}))

	resets := 0
	store.watched = func() {
		if resets > 0 {
			return
		}
		resets++
		_, err := store.Reset(ctx, "u1")
		require.NoError(t, err)
	}

	attached, err := store.AttachTask(ctx, "u1", "r1", "task-1")
	require.NoError(t, err)
	assert.False(t, attached)
	assert.Equal(t, 1, resets)
	assert.False(t, mr.Exists("export:u1"), "a cancelled request stays idle")

	done, err := store.Complete(ctx, "u1", "r1", []byte(`{}`), time.Now())
	require.NoError(t, err)
	assert.False(t, done)
}
