package model

import (
	"errors"
	"time"
)

// Principal is the identity resolved for a single request.  It is derived
// either from a server session or from verified token claims and is never
// persisted on its own.  Email is only known for session principals.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

// Validate rejects principals with missing fields or an unknown role.
func (p Principal) Validate() error {
	if p.ID == "" || p.Username == "" {
		return errors.New("principal: id and username are required")
	}
	if !p.Role.Valid() {
		return errors.New("principal: invalid role")
	}
	return nil
}

// HasRole reports whether the principal's role is in roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Session models a row of the `sessions` table.  Principal is nil for a
// session that exists but carries no logged-in identity.
//
// Fields:
//  ID        – opaque random session identifier (cookie value).
//  Principal – identity captured at login time, if any.
//  ExpiresAt – absolute expiry; rows past it are treated as absent.
type Session struct {
	ID        string
	Principal *Principal
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
