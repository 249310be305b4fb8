package types

import "time"

// User represents an account in the system.
// It contains identity, role, profile and password-reset metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// FirstName and LastName are shown on the profile page.
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// Avatar is the public URL of the profile image and AvatarID its
	// identifier in the image store.
	Avatar   string `json:"avatar" db:"avatar"`
	AvatarID string `json:"-" db:"avatar_id"`

	// IsAdmin grants permission to mutate any resource.
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ResetToken holds the pending password reset, if any. Token digest and
	// expiry are always set or cleared together.
	ResetToken *ResetToken `json:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ResetToken is a pending password reset bound to one user.
type ResetToken struct {
	// Hash is the hex SHA-256 digest of the token delivered to the user.
	Hash string `db:"reset_token"`

	// ExpiresAt is the absolute instant after which the token is unusable.
	ExpiresAt time.Time `db:"reset_token_expires"`
}

// ValidAt reports whether the token is still usable at now.
// A token is expired at exactly its expiry instant.
func (t *ResetToken) ValidAt(now time.Time) bool {
	return t != nil && now.Before(t.ExpiresAt)
}

// AuthorRef returns the author snapshot recorded on resources the user creates.
func (u User) AuthorRef() Author {
	return Author{ID: u.ID, Username: u.Username}
}
