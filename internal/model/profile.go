package model

import "time"

// Profile holds per-user display information. ID is the user id.
type Profile struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPreferences holds per-user feature flags.
type UserPreferences struct {
	UserID             string    `json:"user_id"`
	AutoFetchMetadata  bool      `json:"auto_fetch_metadata"`
	EmailNotifications bool      `json:"email_notifications"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProfilePatch holds the profile fields to change. An empty FullName clears it.
type ProfilePatch struct {
	FullName *string
}

// Apply returns a copy of p with the patch applied.
func (p Profile) Apply(patch ProfilePatch, updatedAt time.Time) Profile {
	if patch.FullName != nil {
		p.FullName = nilIfEmpty(*patch.FullName)
	}
	p.UpdatedAt = updatedAt
	return p
}

// PreferencesPatch holds the flags to change. Nil fields are left untouched.
type PreferencesPatch struct {
	AutoFetchMetadata  *bool
	EmailNotifications *bool
}

// DefaultPreferences returns the preferences created for a user on first access.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:             userID,
		AutoFetchMetadata:  true,
		EmailNotifications: false,
		UpdatedAt:          time.Now().UTC(),
	}
}

// Apply returns a copy of p with the patch applied.
func (p UserPreferences) Apply(patch PreferencesPatch, updatedAt time.Time) UserPreferences {
	if patch.AutoFetchMetadata != nil {
		p.AutoFetchMetadata = *patch.AutoFetchMetadata
	}
	if patch.EmailNotifications != nil {
		p.EmailNotifications = *patch.EmailNotifications
	}
	p.UpdatedAt = updatedAt
	return p
}

// NewProfile returns an empty profile for the user.
func NewProfile(userID string) Profile {
	now := time.Now().UTC()
	return Profile{ID: userID, CreatedAt: now, UpdatedAt: now}
}
