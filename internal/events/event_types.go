package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded   EventType = "login_succeeded"
	EventLoginFailed      EventType = "login_failed"
	EventUserRegistered   EventType = "user_registered"
	EventPasswordChanged  EventType = "password_changed"
	EventRolesUpdated     EventType = "roles_updated"
	EventAccountStatusSet EventType = "account_status_set"
)

// Event represents an audit-relevant authentication event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(eventType EventType, subject string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason   string `json:"reason"`
	Failures int64  `json:"failures,omitempty"`
}

// RolesUpdatedPayload payload.
type RolesUpdatedPayload struct {
	Roles []string `json:"roles"`
}

// AccountStatusPayload payload.
type AccountStatusPayload struct {
	Active bool `json:"active"`
}
