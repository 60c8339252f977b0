// Package session persists the signed-in identity for a browser session.
//
// The token and user profile returned by the identity service are kept
// together as one Record so they are written and cleared in a single step.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoSession reports that no identity is stored for the session.
	ErrNoSession = errors.New("session: no stored identity")
	// ErrCorruptSession reports a stored identity that cannot be decoded or is incomplete.
	ErrCorruptSession = errors.New("session: stored identity is corrupt")
)

// User is the profile document owned by the identity service.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt string
	// Extra keeps service fields this application does not model.
	Extra map[string]json.RawMessage
}

var userKnownFields = []string{"id", "_id", "name", "email", "createdAt"}

// UnmarshalJSON accepts numeric or string identifiers, falling back to _id.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("session: user must be an object")
	}
	id, err := decodeID(fields["id"])
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = decodeID(fields["_id"]); err != nil {
			return err
		}
	}
	*u = User{ID: id}
	if err := decodeString(fields["name"], &u.Name); err != nil {
		return fmt.Errorf("session: user name: %w", err)
	}
	if err := decodeString(fields["email"], &u.Email); err != nil {
		return fmt.Errorf("session: user email: %w", err)
	}
	if err := decodeString(fields["createdAt"], &u.CreatedAt); err != nil {
		return fmt.Errorf("session: user createdAt: %w", err)
	}
	for _, known := range userKnownFields {
		delete(fields, known)
	}
	if len(fields) > 0 {
		u.Extra = fields
	}
	return nil
}

// MarshalJSON writes the modelled fields alongside the preserved extras.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+4)
	for k, v := range u.Extra {
		out[k] = v
	}
	out["id"] = u.ID
	out["name"] = u.Name
	out["email"] = u.Email
	if u.CreatedAt != "" {
		out["createdAt"] = u.CreatedAt
	}
	return json.Marshal(out)
}

// FirstName returns the first word of the display name.
func (u User) FirstName() string {
	fields := strings.Fields(u.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Initials returns the upper-cased first letter of each name part.
func (u User) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(u.Name) {
		for _, r := range part {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
	}
	return b.String()
}

// Joined parses CreatedAt. The identity service emits RFC 3339 or a bare date.
func (u User) Joined() (time.Time, bool) {
	if u.CreatedAt == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, u.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Record is the stored identity of a signed-in browser session.
type Record struct {
	Token      string    `json:"token"`
	User       User      `json:"user"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// Validate reports ErrCorruptSession when the record cannot authenticate requests.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("%w: empty token", ErrCorruptSession)
	}
	if strings.TrimSpace(r.User.ID) == "" {
		return fmt.Errorf("%w: missing user id", ErrCorruptSession)
	}
	return nil
}

// Encode serialises a valid record.
func Encode(rec Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("session: encode: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored record. Anything other than a complete record is
// reported as ErrCorruptSession.
func Decode(raw string) (Record, error) {
	if strings.TrimSpace(raw) == "" {
		return Record{}, ErrNoSession
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if dec.More() {
		return Record{}, fmt.Errorf("%w: trailing data", ErrCorruptSession)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("session: user id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("session: user id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", fmt.Errorf("session: user id: %w", err)
	}
	return n.String(), nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
