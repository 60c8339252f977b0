package session

import (
	"context"
	"sync"

	"github.com/stellarsaas/stellar/internal/shared"
)

// Topic is the change topic announced whenever the stored identity changes.
const Topic = "auth"

const recordKey = "auth"

// Repository stores the identity of the current browser session.
type Repository interface {
	Get(ctx context.Context) (Record, error)
	Set(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// CookieRepository keeps the record inside the request's cookie session.
type CookieRepository struct{}

// NewCookieRepository constructs a CookieRepository.
func NewCookieRepository() *CookieRepository {
	return &CookieRepository{}
}

// Get decodes the record of the session attached to ctx.
func (CookieRepository) Get(ctx context.Context) (Record, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return Record{}, ErrNoSession
	}
	raw, ok := sess.Lookup(recordKey)
	if !ok {
		return Record{}, ErrNoSession
	}
	return Decode(raw)
}

// Set replaces the stored record in one write. The session moves to a new ID
// so an ID issued before sign-in never carries an identity.
func (CookieRepository) Set(ctx context.Context, rec Record) error {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return shared.ErrSessionMissing
	}
	raw, err := Encode(rec)
	if err != nil {
		return err
	}
	sess.Renew()
	sess.Set(recordKey, raw)
	sess.MarkChanged(Topic)
	return nil
}

// Clear removes the stored record.
func (CookieRepository) Clear(ctx context.Context) error {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return shared.ErrSessionMissing
	}
	sess.Renew()
	sess.Delete(recordKey)
	sess.MarkChanged(Topic)
	return nil
}

// MemoryRepository is an in-process Repository shared by all callers.
type MemoryRepository struct {
	mu     sync.Mutex
	raw    string
	stored bool
	writes int
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Get decodes the stored record.
func (m *MemoryRepository) Get(ctx context.Context) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stored {
		return Record{}, ErrNoSession
	}
	return Decode(m.raw)
}

// Set stores the record.
func (m *MemoryRepository) Set(ctx context.Context, rec Record) error {
	raw, err := Encode(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = raw
	m.stored = true
	m.writes++
	return nil
}

// Clear removes the stored record.
func (m *MemoryRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = ""
	m.stored = false
	m.writes++
	return nil
}

// SetRaw stores an arbitrary payload, bypassing validation.
func (m *MemoryRepository) SetRaw(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = raw
	m.stored = true
}

// Stored reports whether any payload is present.
func (m *MemoryRepository) Stored() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored
}

// Writes counts Set and Clear calls.
func (m *MemoryRepository) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

var (
	_ Repository = CookieRepository{}
	_ Repository = (*MemoryRepository)(nil)
)
