package events

import (
	"time"

	"github.com/mindboost/academy-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventTokenRefreshed  EventType = "token_refreshed"
	EventLoggedOut       EventType = "logged_out"
	EventPasswordChanged EventType = "password_changed"
	EventRoleAssigned    EventType = "role_assigned"
)

// AllEventTypes lists every auth event type.
func AllEventTypes() []EventType {
	return []EventType{
		EventUserRegistered,
		EventLoginSucceeded,
		EventLoginFailed,
		EventTokenRefreshed,
		EventLoggedOut,
		EventPasswordChanged,
		EventRoleAssigned,
	}
}

// Actor identifies who triggered an event. It never carries an email.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents an auth event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload records why a sign-in was refused.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// RoleAssignedPayload records a role change made by an administrator.
type RoleAssignedPayload struct {
	TargetUserID string      `json:"target_user_id"`
	OldRole      domain.Role `json:"old_role"`
	NewRole      domain.Role `json:"new_role"`
}
