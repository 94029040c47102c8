package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of authorization roles.  Anything outside the
// enumeration is rejected at the boundary by ParseRole.
type Role string

const (
	RoleUser  Role = "user"  // default role assigned at registration
	RoleAdmin Role = "admin" // may manage other users
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole normalizes s and returns the matching Role.  An empty string is
// not a role; callers that want a default must apply it themselves.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User represents an account record as stored in the `users` table.  The
// PasswordHash never leaves the credential store; handlers receive
// PublicUser instead.
//
// Fields:
//  ID           – opaque unique identifier (UUID string).
//  Username     – unique login name, at least 3 characters.
//  Email        – unique email address.
//  PasswordHash – bcrypt digest of the password.
//  Role         – authorization role.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// PublicUser is a user record safe to return to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Principal returns the identity subset stored in sessions and tokens.
func (u PublicUser) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
