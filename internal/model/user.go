// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultAvatarURL is assigned to accounts that register without an avatar.
const DefaultAvatarURL = "https://ui-avatars.com/api/?name=User"

// User represents a registered account.
//
// Two kinds of accounts exist:
//   - Password accounts, created via /users/register. PasswordHash is set.
//   - OAuth accounts, created on first Google login. PasswordHash is EMPTY.
//     A login attempt against such an account must fail like a wrong
//     password, never like a server error.
//
// Email is normalized to lowercase before storage and lookup, and carries a
// UNIQUE constraint: "A@B.com" and "a@b.com" are the same account.
//
// RefreshToken holds the single currently-valid refresh token. Every
// login/OAuth-login rotates it; logout clears it. The refresh endpoint
// checks incoming cookies against this column, which is what invalidates
// superseded tokens before their embedded expiry.
//
// SENSITIVE FIELDS:
// PasswordHash, RefreshToken and the reset-code pair are tagged `json:"-"`.
// A User can therefore be handed to writeJSON directly without ever leaking
// credentials into a response body.
type User struct {
	ID              string    `json:"id"        db:"id"`
	Username        string    `json:"userName"  db:"username"`
	FullName        string    `json:"fullName"  db:"full_name"`
	Email           string    `json:"email"     db:"email"`
	PasswordHash    string    `json:"-"         db:"password_hash"`
	Avatar          string    `json:"avatar"    db:"avatar"`
	RefreshToken    string    `json:"-"         db:"refresh_token"`
	ResetCodeHash   string    `json:"-"         db:"reset_code_hash"`
	ResetCodeExpiry time.Time `json:"-"         db:"reset_code_expiry"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the projection returned by register/login responses.
type PublicUser struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Public returns the response projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Email:  u.Email,
		Avatar: u.Avatar,
	}
}

// HasPassword reports whether this is a password account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
