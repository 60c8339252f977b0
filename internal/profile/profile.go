// Package profile serves account settings, privacy controls and data export.
package profile

import (
	"encoding/json"
	"time"

	"github.com/stellarsaas/stellar/internal/session"
	"github.com/stellarsaas/stellar/internal/shared"
)

// PreferencesSessionKey holds the privacy toggles in the cookie session.
const PreferencesSessionKey = "prefs"

// Preferences are the communication and privacy toggles.
type Preferences struct {
	EmailNotifications bool `json:"emailNotifications"`
	SMSNotifications   bool `json:"smsNotifications"`
	MarketingEmails    bool `json:"marketingEmails"`
	DataProcessing     bool `json:"dataProcessing"`
}

// DefaultPreferences applies until the user changes a toggle.
func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, MarketingEmails: true, DataProcessing: true}
}

// DataUsage summarises stored data.
type DataUsage struct {
	StorageUsed string `json:"storageUsed"`
	APICalls    string `json:"apiCalls"`
	LastBackup  string `json:"lastBackup"`
}

// Profile is the signed-in user enriched with account details shown on the
// settings page. It is also the export document.
type Profile struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Email       string                     `json:"email"`
	Phone       string                     `json:"phone"`
	Company     string                     `json:"company"`
	Plan        string                     `json:"plan"`
	JoinDate    string                     `json:"joinDate,omitempty"`
	LastLogin   time.Time                  `json:"lastLogin"`
	CreatedAt   string                     `json:"createdAt,omitempty"`
	Preferences Preferences                `json:"preferences"`
	DataUsage   DataUsage                  `json:"dataUsage"`
	Extra       map[string]json.RawMessage `json:"-"`
}

// Enrich builds the display profile for user.
func Enrich(user session.User, prefs Preferences, now time.Time) Profile {
	return Profile{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Phone:       "+44 (786) 123-456",
		Company:     "Stellar SaaS",
		Plan:        "Pro",
		JoinDate:    user.CreatedAt,
		LastLogin:   now.UTC(),
		CreatedAt:   user.CreatedAt,
		Preferences: prefs,
		DataUsage: DataUsage{
			StorageUsed: "2.3 GB",
			APICalls:    "15,420",
			LastBackup:  "2024-12-19",
		},
		Extra: user.Extra,
	}
}

// Joined parses the join date.
func (p Profile) Joined() time.Time {
	t, _ := session.User{CreatedAt: p.JoinDate}.Joined()
	return t
}

// Document renders the export file. Service-owned user fields are kept
// alongside the enriched ones.
func (p Profile) Document() ([]byte, error) {
	base, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+12)
	for k, v := range p.Extra {
		merged[k] = v
	}
	var own map[string]json.RawMessage
	if err := json.Unmarshal(base, &own); err != nil {
		return nil, err
	}
	for k, v := range own {
		merged[k] = v
	}
	return json.MarshalIndent(merged, "", "  ")
}

// LoadPreferences reads the toggles of the current session.
func LoadPreferences(sess *shared.Session) Preferences {
	prefs := DefaultPreferences()
	if sess == nil {
		return prefs
	}
	raw, ok := sess.Lookup(PreferencesSessionKey)
	if !ok {
		return prefs
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return DefaultPreferences()
	}
	return prefs
}

// SavePreferences stores the toggles in the current session.
func SavePreferences(sess *shared.Session, prefs Preferences) error {
	if sess == nil {
		return shared.ErrSessionMissing
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	sess.Set(PreferencesSessionKey, string(raw))
	return nil
}
