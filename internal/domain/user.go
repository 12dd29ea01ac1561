package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account
type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authenticated session
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time

	// Metadata copied from the user at creation time so the auth
	// callback can seed a profile without a second lookup.
	Email     string
	FirstName string
	LastName  string
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Profile is a persisted record of user-supplied identity fields,
// keyed by the session's user ID.
type Profile struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Username  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates a profile seeded from session metadata.
func NewProfile(userID uuid.UUID, firstName, lastName string) *Profile {
	now := time.Now()
	return &Profile{
		ID:        userID,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
