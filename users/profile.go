package users

import "time"

// DefaultPreferences is returned for users who never stored any preferences.
const DefaultPreferences = "{}"

// Profile is the self-service part of a user record. UpdatedAt is zero until
// the user first saves their profile.
type Profile struct {
	UserID     string    `json:"user_id"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	JobTitle   string    `json:"job_title,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// ProfileUpdate replaces every editable profile field. Empty strings clear.
type ProfileUpdate struct {
	FirstName  string
	LastName   string
	Phone      string
	Department string
	JobTitle   string
}
