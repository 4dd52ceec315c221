// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a permission grant. A user holds a set of roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserRole is one row of a user's role set. The console keys its role
// badges on the grant id, so roles serialize as objects, not strings.
type UserRole struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// User represents an account, created either through Google sign-in or
// as a password-and-TOTP operator account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	Fullname     string     `json:"fullname"`
	Picture      string     `json:"picture,omitempty"`
	GoogleSub    *string    `json:"-"` // Nullable; set for Google accounts
	PasswordHash string     `json:"-"` // Never serialize the hash
	TOTPSecret   string     `json:"-"`
	TOTPEnabled  bool       `json:"-"`
	Roles        []UserRole `json:"roles"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsAdmin returns true if the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// RoleNames flattens the role set to its names, the shape sessions and
// role-replacement requests use.
func (u *User) RoleNames() []Role {
	names := make([]Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}

// Needs2FASetup returns true if a password account has not completed TOTP
// enrollment. Google accounts never need it.
func (u *User) Needs2FASetup() bool {
	return u.PasswordHash != "" && !u.TOTPEnabled
}
