package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Capabilities is the full capability set of one user over one ticket,
// computed once per request and threaded through the engine. CanView
// covers listing and reading; the remaining flags gate mutations. For
// agents the two deliberately diverge: every ticket is listable, but only
// assigned tickets are actionable.
type Capabilities struct {
	CanView               bool
	CanMessage            bool
	CanChangeStatus       bool
	CanAssign             bool
	CanManageParticipants bool
	CanViewSecureKeys     bool
}

// CapabilitiesFor resolves the capability matrix for a user on a ticket.
func CapabilitiesFor(ctx context.Context, participants repository.ParticipantRepository, user *domain.User, ticket *domain.Ticket) (Capabilities, error) {
	var caps Capabilities

	switch user.Role {
	case domain.RoleSuperAdmin, domain.RoleAgentAdmin:
		caps = Capabilities{
			CanView:               true,
			CanMessage:            true,
			CanChangeStatus:       true,
			CanAssign:             true,
			CanManageParticipants: true,
			CanViewSecureKeys:     true,
		}

	case domain.RoleAgent:
		caps.CanView = true
		assigned := ticket.AssignedTo != nil && *ticket.AssignedTo == user.ID
		if assigned {
			caps.CanMessage = true
			caps.CanChangeStatus = true
			caps.CanManageParticipants = true
			caps.CanViewSecureKeys = true
		}
		// any agent may self-assign an open, unassigned ticket; the
		// state preconditions are checked at the operation
		caps.CanAssign = assigned || ticket.AssignedTo == nil

	case domain.RoleOrgAdmin:
		if user.BelongsTo(ticket.TenantID) {
			caps.CanView = true
			caps.CanMessage = true
			caps.CanManageParticipants = true
			caps.CanViewSecureKeys = true
		}

	case domain.RoleUser:
		if ticket.CreatedBy == user.ID {
			caps.CanView = true
			caps.CanMessage = true
			caps.CanManageParticipants = true
			caps.CanViewSecureKeys = true
			break
		}
		isParticipant, err := participants.Exists(ctx, ticket.ID, user.ID)
		if err != nil {
			return Capabilities{}, err
		}
		if isParticipant {
			caps.CanView = true
			caps.CanMessage = true
			caps.CanViewSecureKeys = true
		}
	}

	return caps, nil
}
