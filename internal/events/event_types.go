package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventSecureKeyAdded      EventType = "secure_key_added"
	EventSecureKeyRemoved    EventType = "secure_key_removed"
	EventUserRegistered      EventType = "user_registered"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TenantID   string                `json:"tenant_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
	AssignedTo *string               `json:"assigned_to,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// TicketMessageAddedPayload payload. Internal notes carry no body preview
// beyond their flag; secure-key values never appear here.
type TicketMessageAddedPayload struct {
	MessageID   string `json:"message_id"`
	IsInternal  bool   `json:"is_internal"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview,omitempty"`
}

// SecureKeyPayload payload; identifies a secure key by label only.
type SecureKeyPayload struct {
	SecureKeyID string `json:"secure_key_id"`
	Label       string `json:"label"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}
