// Package queue defines the audit events published to the message broker
// and the background consumer that records them.
package queue

import "time"

// EventType names an auditable authentication action.
type EventType string

const (
	EventRegistered  EventType = "user.registered"
	EventLogin       EventType = "user.login"
	EventLoginFailed EventType = "user.login_failed"
	EventLogout      EventType = "user.logout"
	EventRefreshed   EventType = "token.refreshed"
	EventRoleChanged EventType = "user.role_changed"
	EventDeleted     EventType = "user.deleted"
)

// AuthEvent carries enough context for downstream consumers to log or alert
// without querying the primary database.  Passwords and tokens never appear.
type AuthEvent struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Email      string    `json:"email,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Role       string    `json:"role,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	IP         string    `json:"ip,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
