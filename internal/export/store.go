// Package export tracks personal data export requests in Redis.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// State is the lifecycle position of an export request.
type State string

// Export states.
const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateReady      State = "ready"
)

// ErrNotReady is returned when the document is requested before it exists.
var ErrNotReady = errors.New("export: document not ready")

// Status is the stored request status of one user.
type Status struct {
	State       State     `json:"status"`
	RequestID   string    `json:"request_id,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitempty"`
	ReadyAt     time.Time `json:"ready_at,omitempty"`
}

// Store persists export status and the prepared document.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	// watched runs between the read and the write of a watched update.
	watched func()
}

// NewStore constructs a Store. Entries expire after ttl.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func statusKey(userID string) string {
	return "export:" + userID
}

func dataKey(userID string) string {
	return "export:" + userID + ":data"
}

// Status returns the current status, idle when nothing is stored.
func (s *Store) Status(ctx context.Context, userID string) (Status, error) {
	raw, err := s.client.Get(ctx, statusKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{State: StateIdle}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("export: load status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil || st.State == "" {
		return Status{State: StateIdle}, nil
	}
	return st, nil
}

// Begin records a processing request and drops any earlier document.
func (s *Store) Begin(ctx context.Context, userID string, st Status) error {
	st.State = StateProcessing
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, dataKey(userID))
		pipe.Set(ctx, statusKey(userID), raw, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	return nil
}

// attachRetries bounds AttachTask retries after a concurrent status write.
const attachRetries = 3

// AttachTask stores the queue task handle of the current request. It reports
// false when the request was cancelled or superseded before the handle landed.
func (s *Store) AttachTask(ctx context.Context, userID, requestID, taskID string) (bool, error) {
	attached := false
	txf := func(tx *redis.Tx) error {
		attached = false
		raw, err := tx.Get(ctx, statusKey(userID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var st Status
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil
		}
		if st.State != StateProcessing || st.RequestID != requestID {
			return nil
		}
		if s.watched != nil {
			s.watched()
		}
		st.TaskID = taskID
		next, err := json.Marshal(st)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, statusKey(userID), next, s.ttl)
			return nil
		})
		if err == nil {
			attached = true
		}
		return err
	}
	for i := 0; i < attachRetries; i++ {
		err := s.client.Watch(ctx, txf, statusKey(userID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("export: attach task: %w", err)
		}
		return attached, nil
	}
	return false, fmt.Errorf("export: attach task: %w", redis.TxFailedErr)
}

// Complete stores the document and marks the request ready. It reports false
// when the request was cancelled or superseded in the meantime.
func (s *Store) Complete(ctx context.Context, userID, requestID string, document []byte, at time.Time) (bool, error) {
	completed := false
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, statusKey(userID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var st Status
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil
		}
		if st.State != StateProcessing || st.RequestID != requestID {
			return nil
		}
		st.State = StateReady
		st.ReadyAt = at.UTC()
		next, err := json.Marshal(st)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dataKey(userID), document, s.ttl)
			pipe.Set(ctx, statusKey(userID), next, s.ttl)
			return nil
		})
		if err == nil {
			completed = true
		}
		return err
	}
	if err := s.client.Watch(ctx, txf, statusKey(userID)); err != nil {
		return false, fmt.Errorf("export: complete: %w", err)
	}
	return completed, nil
}

// Reset returns the user to idle and deletes any prepared document. The
// previous status is returned so callers can cancel its task.
func (s *Store) Reset(ctx context.Context, userID string) (Status, error) {
	prev, err := s.Status(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	if err := s.client.Del(ctx, statusKey(userID), dataKey(userID)).Err(); err != nil {
		return Status{}, fmt.Errorf("export: reset: %w", err)
	}
	return prev, nil
}

// Document returns the prepared export.
func (s *Store) Document(ctx context.Context, userID string) ([]byte, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.State != StateReady {
		return nil, ErrNotReady
	}
	doc, err := s.client.Get(ctx, dataKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("export: load document: %w", err)
	}
	return doc, nil
}
