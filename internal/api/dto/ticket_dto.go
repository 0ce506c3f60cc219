package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CreateTicketRequest payload. TenantID and OnBehalfOf only apply to
// internal-team callers; tenant users always file into their own tenant.
type CreateTicketRequest struct {
	TenantID    string                `json:"tenant_id,omitempty"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	OnBehalfOf  *string               `json:"on_behalf_of,omitempty"`
}

// SecureKeyRequest attaches a secret to a ticket. RiskAcknowledged must
// be true or the server rejects the value.
type SecureKeyRequest struct {
	Label            string `json:"label"`
	Value            string `json:"value"`
	RiskAcknowledged bool   `json:"risk_acknowledged"`
}

// CreateMessageRequest payload. KeepParticipants, when present, is the
// authoritative participant list after the message; omitted means no
// removals.
type CreateMessageRequest struct {
	Content          string            `json:"content"`
	IsInternal       bool              `json:"is_internal"`
	KeepParticipants *[]string         `json:"keep_participants,omitempty"`
	AddParticipants  []string          `json:"add_participants,omitempty"`
	SecureKey        *SecureKeyRequest `json:"secure_key,omitempty"`
}

// ChangeStatusRequest payload. The message is mandatory; every transition
// is justified in the thread.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Message string              `json:"message"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         string                `json:"id"`
	TenantID   string                `json:"tenant_id"`
	Title      string                `json:"title"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	CreatedBy  string                `json:"created_by"`
	AssignedTo *string               `json:"assigned_to,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         t.ID,
		TenantID:   t.TenantID,
		Title:      t.Title,
		Status:     t.Status,
		Priority:   t.Priority,
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedTo,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// MessageResponse represents a thread entry.
type MessageResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// ParticipantResponse represents a thread participant.
type ParticipantResponse struct {
	UserID  string    `json:"user_id"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// SecureKeyResponse lists a stored secret by label only; the value is
// fetched through the reveal endpoint.
type SecureKeyResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	MessageID *string   `json:"message_id,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CapabilitiesResponse tells the client which actions to offer.
type CapabilitiesResponse struct {
	CanView               bool `json:"can_view"`
	CanMessage            bool `json:"can_message"`
	CanChangeStatus       bool `json:"can_change_status"`
	CanAssign             bool `json:"can_assign"`
	CanManageParticipants bool `json:"can_manage_participants"`
	CanViewSecureKeys     bool `json:"can_view_secure_keys"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID           string                `json:"id"`
	TenantID     string                `json:"tenant_id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedBy    string                `json:"created_by"`
	AssignedTo   *string               `json:"assigned_to,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Messages     []MessageResponse     `json:"messages"`
	Participants []ParticipantResponse `json:"participants"`
	SecureKeys   []SecureKeyResponse   `json:"secure_keys"`
	Capabilities CapabilitiesResponse  `json:"capabilities"`
}

// NewTicketDetailResponse maps a service ticket view.
func NewTicketDetailResponse(view *service.TicketView) TicketDetailResponse {
	resp := TicketDetailResponse{
		ID:          view.Ticket.ID,
		TenantID:    view.Ticket.TenantID,
		Title:       view.Ticket.Title,
		Description: view.Ticket.Description,
		Status:      view.Ticket.Status,
		Priority:    view.Ticket.Priority,
		CreatedBy:   view.Ticket.CreatedBy,
		AssignedTo:  view.Ticket.AssignedTo,
		CreatedAt:   view.Ticket.CreatedAt,
		UpdatedAt:   view.Ticket.UpdatedAt,
		Capabilities: CapabilitiesResponse{
			CanView:               view.Capabilities.CanView,
			CanMessage:            view.Capabilities.CanMessage,
			CanChangeStatus:       view.Capabilities.CanChangeStatus,
			CanAssign:             view.Capabilities.CanAssign,
			CanManageParticipants: view.Capabilities.CanManageParticipants,
			CanViewSecureKeys:     view.Capabilities.CanViewSecureKeys,
		},
	}
	for _, m := range view.Messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:         m.ID,
			UserID:     m.UserID,
			Content:    m.Content,
			IsInternal: m.IsInternal,
			CreatedAt:  m.CreatedAt,
		})
	}
	for _, p := range view.Participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{
			UserID:  p.UserID,
			AddedBy: p.AddedBy,
			AddedAt: p.CreatedAt,
		})
	}
	for _, k := range view.SecureKeys {
		resp.SecureKeys = append(resp.SecureKeys, SecureKeyResponse{
			ID:        k.ID,
			Label:     k.Label,
			MessageID: k.MessageID,
			CreatedBy: k.CreatedBy,
			CreatedAt: k.CreatedAt,
		})
	}
	return resp
}
