package models

import "time"

// User represents a registered user account.
type User struct {
	// ID is the backend-assigned numeric identifier.
	ID int64 `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Email is the user's email address (unique). Used for login.
	Email string `json:"email"`

	// Username is optional and only returned by some backends.
	Username string `json:"username,omitempty"`

	// Phone is collected at registration.
	Phone string `json:"phone,omitempty"`

	// PasswordHash is the bcrypt hash. Never serialized.
	PasswordHash string `json:"-"`

	// VerifiedAt is set once the account OTP has been confirmed.
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether the user carries the identity fields the client
// relies on: id, name and email.
func (u User) Complete() bool {
	return u.ID != 0 && u.Name != "" && u.Email != ""
}

// Ref returns the short user reference embedded in groups, posts and stories.
func (u User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name}
}

// UserRef is the abbreviated user shape nested in other resources.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
