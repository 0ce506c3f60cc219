package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/vault"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService coordinates the ticket lifecycle: visibility, status
// transitions, assignment, messages, participants, and secure keys. Every
// mutation runs inside one transaction so a state change can never land
// without its audit message.
type TicketService struct {
	uow        repository.UnitOfWork
	repos      *repository.Repositories
	settings   *SettingsService
	vault      *vault.Vault
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UnitOfWork repository.UnitOfWork
	Repos      *repository.Repositories
	Settings   *SettingsService
	Vault      *vault.Vault
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		uow:        deps.UnitOfWork,
		repos:      deps.Repos,
		settings:   deps.Settings,
		vault:      deps.Vault,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload. OnBehalfOf is set
// when an internal-team member files for a tenant user.
type TicketCreateInput struct {
	TenantID    string
	Title       string
	Description string
	Priority    domain.TicketPriority
	OnBehalfOf  *string
}

// TicketListFilter describes listing filters; scope is derived from the
// caller's role, not from the filter.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// SecureKeyInput carries a plaintext secret to attach. The caller must
// have explicitly acknowledged the risk; the server rejects a value
// without confirmation regardless of any client-side enforcement.
type SecureKeyInput struct {
	Label            string
	Value            string
	RiskAcknowledged bool
}

// MessageInput describes an add-message operation: the message itself plus
// the bundled participant diff and optional secure key.
type MessageInput struct {
	Content          string
	IsInternal       bool
	KeepParticipants *[]string
	AddParticipants  []string
	SecureKey        *SecureKeyInput
}

// TicketView is the engine's structured read result; a rendering layer
// turns it into HTML.
type TicketView struct {
	Ticket       *domain.Ticket
	Messages     []domain.Message
	Participants []domain.TicketParticipant
	SecureKeys   []domain.SecureKey
	Capabilities Capabilities
}

// CreateTicket files a ticket. Tenant users file into their own tenant;
// internal-team members name the tenant and may file on behalf of one of
// its users. When auto-assignment is enabled the least-loaded active agent
// receives the ticket immediately.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	tenantID := input.TenantID
	createdBy := actor.ID
	var createdByAgent *string

	if actor.Role.IsInternal() {
		if tenantID == "" {
			return nil, apperrors.NewValidationError("tenant_id required", nil)
		}
		if input.OnBehalfOf != nil {
			requester, err := s.repos.Users.GetByID(ctx, *input.OnBehalfOf)
			if err != nil {
				return nil, mapLookupErr(err, "user")
			}
			if !requester.BelongsTo(tenantID) {
				return nil, apperrors.NewValidationError("requester does not belong to tenant", nil)
			}
			createdBy = requester.ID
			agentID := actor.ID
			createdByAgent = &agentID
		}
	} else {
		if actor.TenantID == nil {
			return nil, apperrors.NewForbidden("no tenant context")
		}
		if tenantID != "" && tenantID != *actor.TenantID {
			return nil, apperrors.NewForbidden("cannot file into another tenant")
		}
		tenantID = *actor.TenantID
	}

	ticket := &domain.Ticket{
		TenantID:       tenantID,
		Title:          title,
		Description:    description,
		Priority:       priority,
		Status:         domain.TicketStatusOpen,
		CreatedBy:      createdBy,
		CreatedByAgent: createdByAgent,
	}

	autoAssign, err := s.settings.AutoAssignEnabled(ctx)
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if !autoAssign {
			return nil
		}
		loads, err := r.Users.AgentLoads(ctx)
		if err != nil {
			return err
		}
		if len(loads) == 0 {
			return nil
		}
		assignee := loads[0].UserID
		ticket.AssignedTo = &assignee
		ticket.Status = domain.TicketStatusInProgress
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return r.Messages.Create(ctx, &domain.Message{
			TicketID:   ticket.ID,
			UserID:     actor.ID,
			Content:    "Ticket automatically assigned",
			IsInternal: true,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			TenantID:   ticket.TenantID,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
			AssignedTo: ticket.AssignedTo,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets within the caller's visibility scope.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	switch actor.Role {
	case domain.RoleSuperAdmin, domain.RoleAgentAdmin, domain.RoleAgent:
		// all tickets are listable for the internal team
	case domain.RoleOrgAdmin:
		if actor.TenantID == nil {
			return nil, apperrors.NewForbidden("no tenant context")
		}
		repoFilter.TenantID = actor.TenantID
	case domain.RoleUser:
		userID := actor.ID
		repoFilter.VisibleTo = &userID
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	tickets, err := s.repos.Tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket loads a ticket with its thread for an authorized viewer.
// Internal messages are stripped for non-internal roles.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*TicketView, error) {
	ticket, caps, err := s.loadWithCaps(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, apperrors.NewForbidden("no access to ticket")
	}

	messages, err := s.repos.Messages.ListByTicket(ctx, ticket.ID, actor.Role.IsInternal())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	participants, err := s.repos.Participants.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	view := &TicketView{
		Ticket:       ticket,
		Messages:     messages,
		Participants: participants,
		Capabilities: caps,
	}
	if caps.CanViewSecureKeys {
		keys, err := s.repos.SecureKeys.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		view.SecureKeys = keys
	}
	return view, nil
}

// AddMessage appends a message and applies the bundled participant diff
// and optional secure key in the same transaction. A public message on a
// resolved ticket un-resolves it back to in_progress with one system note.
func (s *TicketService) AddMessage(ctx context.Context, actor *domain.User, ticketID string, input MessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("message content required", nil)
	}

	ticket, caps, err := s.loadWithCaps(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !caps.CanMessage {
		return nil, apperrors.NewForbidden("no access to ticket")
	}

	isInternal := input.IsInternal
	if ticket.Status == domain.TicketStatusClosed {
		if !actor.Role.IsInternal() {
			return nil, apperrors.NewForbidden("ticket is closed")
		}
		isInternal = true
	}
	if !actor.Role.IsInternal() {
		isInternal = false
	}

	if input.SecureKey != nil {
		if err := validateSecureKeyInput(ticket, input.SecureKey); err != nil {
			return nil, err
		}
	}

	msg := &domain.Message{
		TicketID:   ticket.ID,
		UserID:     actor.ID,
		Content:    content,
		IsInternal: isInternal,
	}

	unresolved := false
	var secureKey *domain.SecureKey

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Messages.Create(ctx, msg); err != nil {
			return err
		}

		if caps.CanManageParticipants && (input.KeepParticipants != nil || len(input.AddParticipants) > 0) {
			if err := s.applyParticipantDiff(ctx, r, actor, ticket, input.KeepParticipants, input.AddParticipants); err != nil {
				return err
			}
		}

		if input.SecureKey != nil {
			key, err := s.storeSecureKey(ctx, r, actor, ticket, input.SecureKey, &msg.ID)
			if err != nil {
				return err
			}
			secureKey = key
		}

		if ticket.Status == domain.TicketStatusResolved && !isInternal {
			ticket.Status = domain.TicketStatusInProgress
			unresolved = true
			if err := r.Messages.Create(ctx, &domain.Message{
				TicketID:   ticket.ID,
				UserID:     actor.ID,
				Content:    fmt.Sprintf("%s: reply received, ticket reopened", domain.TicketStatusInProgress.Label()),
				IsInternal: false,
			}); err != nil {
				return err
			}
		}

		// bumps updated_at even when nothing else changed
		return r.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			IsInternal:  msg.IsInternal,
			AuthorID:    actor.ID,
			BodyPreview: preview(msg.Content, 120),
		},
	})
	if unresolved {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: domain.TicketStatusResolved,
				NewStatus: domain.TicketStatusInProgress,
			},
		})
	}
	if secureKey != nil {
		s.publish(ctx, events.Event{
			Type:     events.EventSecureKeyAdded,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload:  events.SecureKeyPayload{SecureKeyID: secureKey.ID, Label: secureKey.Label},
		})
	}
	return msg, nil
}

// ChangeStatus applies an explicit status transition. Internal team only,
// always with a justification that is persisted as a system message
// prefixed with the status label. Closed tickets move only for super_admin.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus, justification string) (*domain.Ticket, error) {
	if !newStatus.IsValid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	justification = strings.TrimSpace(justification)
	if justification == "" {
		return nil, apperrors.NewValidationError("status change must include a message", nil)
	}

	ticket, caps, err := s.loadWithCaps(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !caps.CanChangeStatus {
		return nil, apperrors.NewForbidden("no access to ticket")
	}

	if ticket.Status == domain.TicketStatusClosed {
		if actor.Role != domain.RoleSuperAdmin {
			return nil, apperrors.NewForbidden("closed tickets can only be reopened by a super admin")
		}
	} else if newStatus == domain.TicketStatusOpen {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	if newStatus == ticket.Status {
		return nil, apperrors.NewConflict("ticket already in requested status", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return r.Messages.Create(ctx, &domain.Message{
			TicketID:   ticket.ID,
			UserID:     actor.ID,
			Content:    fmt.Sprintf("%s: %s", newStatus.Label(), justification),
			IsInternal: false,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   justification,
		},
	})
	return ticket, nil
}

// SelfAssign lets an internal-team member take an open, unassigned ticket.
func (s *TicketService) SelfAssign(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if !actor.Role.IsInternal() {
		return nil, apperrors.NewForbidden("internal team only")
	}

	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapLookupErr(err, "ticket")
	}
	if ticket.AssignedTo != nil {
		return nil, apperrors.NewConflict("ticket already assigned", nil)
	}
	if ticket.Status != domain.TicketStatusOpen {
		return nil, apperrors.NewConflict("ticket is not open", map[string]any{"status": ticket.Status})
	}

	return s.assign(ctx, actor, ticket, actor)
}

// Assign gives the ticket to the named internal user. Reassignment to a
// different agent at any non-closed status is manager-only; initial
// assignment follows the same rule since self-assignment covers agents.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !actor.Role.IsGlobalManager() {
		return nil, apperrors.NewForbidden("only managers can assign tickets")
	}

	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapLookupErr(err, "ticket")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("closed tickets cannot be assigned", nil)
	}

	assignee, err := s.repos.Users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}
	if !assignee.Role.IsInternal() {
		return nil, apperrors.NewValidationError("assignee must be an internal team member", nil)
	}
	if !assignee.IsActive {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"user_id": assigneeID})
	}

	return s.assign(ctx, actor, ticket, assignee)
}

func (s *TicketService) assign(ctx context.Context, actor *domain.User, ticket *domain.Ticket, assignee *domain.User) (*domain.Ticket, error) {
	ticket.AssignedTo = &assignee.ID
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}

	err := s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return r.Messages.Create(ctx, &domain.Message{
			TicketID:   ticket.ID,
			UserID:     actor.ID,
			Content:    fmt.Sprintf("Assigned to %s", assignee.Name),
			IsInternal: true,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
	})
	return ticket, nil
}

// AddSecureKey attaches an encrypted secret without an accompanying
// message, pairing it with a mandatory internal audit note.
func (s *TicketService) AddSecureKey(ctx context.Context, actor *domain.User, ticketID string, input SecureKeyInput) (*domain.SecureKey, error) {
	ticket, caps, err := s.loadWithCaps(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !caps.CanMessage {
		return nil, apperrors.NewForbidden("no access to ticket")
	}
	if err := validateSecureKeyInput(ticket, &input); err != nil {
		return nil, err
	}

	var key *domain.SecureKey
	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		stored, err := s.storeSecureKey(ctx, r, actor, ticket, &input, nil)
		if err != nil {
			return err
		}
		key = stored
		return r.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventSecureKeyAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.SecureKeyPayload{SecureKeyID: key.ID, Label: key.Label},
	})
	return key, nil
}

// RevealSecureKey decrypts a stored secret for an authorized viewer. The
// plaintext is returned to the caller and never logged.
func (s *TicketService) RevealSecureKey(ctx context.Context, actor *domain.User, ticketID, keyID string) (string, error) {
	ticket, caps, err := s.loadWithCaps(ctx, actor, ticketID)
	if err != nil {
		return "", err
	}
	if !caps.CanViewSecureKeys {
		return "", apperrors.NewForbidden("no access to secure keys")
	}

	key, err := s.repos.SecureKeys.GetByID(ctx, keyID)
	if err != nil {
		return "", mapLookupErr(err, "secure key")
	}
	if key.TicketID != ticket.ID {
		return "", apperrors.NewNotFound("secure key", nil)
	}

	plaintext, err := s.vault.Decrypt(key.EncryptedValue, key.IV)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return plaintext, nil
}

// DeleteSecureKey removes a secret, logging only its label.
func (s *TicketService) DeleteSecureKey(ctx context.Context, actor *domain.User, ticketID, keyID string) error {
	ticket, caps, err := s.loadWithCaps(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	if !caps.CanViewSecureKeys {
		return apperrors.NewForbidden("no access to secure keys")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return apperrors.NewConflict("ticket is closed", nil)
	}

	key, err := s.repos.SecureKeys.GetByID(ctx, keyID)
	if err != nil {
		return mapLookupErr(err, "secure key")
	}
	if key.TicketID != ticket.ID {
		return apperrors.NewNotFound("secure key", nil)
	}

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.SecureKeys.Delete(ctx, key.ID); err != nil {
			return err
		}
		if err := r.Messages.Create(ctx, &domain.Message{
			TicketID:   ticket.ID,
			UserID:     actor.ID,
			Content:    fmt.Sprintf("Secure key removed: %s", key.Label),
			IsInternal: true,
		}); err != nil {
			return err
		}
		return r.Tickets.Update(ctx, ticket)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventSecureKeyRemoved,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  events.SecureKeyPayload{SecureKeyID: key.ID, Label: key.Label},
	})
	return nil
}

// AutoResolvePending moves tickets stuck in pending past the configured
// age to resolved, each with a system note. Called by the sweep worker.
func (s *TicketService) AutoResolvePending(ctx context.Context, now time.Time) (int, error) {
	days, err := s.settings.PendingAutoResolveDays(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := now.AddDate(0, 0, -days)

	tickets, err := s.repos.Tickets.ListPendingSince(ctx, cutoff)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	resolved := 0
	for i := range tickets {
		ticket := tickets[i]
		err := s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
			ticket.Status = domain.TicketStatusResolved
			if err := r.Tickets.Update(ctx, &ticket); err != nil {
				return err
			}
			author := ticket.CreatedBy
			if ticket.AssignedTo != nil {
				author = *ticket.AssignedTo
			}
			return r.Messages.Create(ctx, &domain.Message{
				TicketID:   ticket.ID,
				UserID:     author,
				Content:    fmt.Sprintf("%s: automatically resolved after %d days pending", domain.TicketStatusResolved.Label(), days),
				IsInternal: false,
			})
		})
		if err != nil {
			return resolved, apperrors.MapError(err)
		}
		resolved++
	}
	return resolved, nil
}

func (s *TicketService) loadWithCaps(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, Capabilities, error) {
	ticket, err := s.repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, Capabilities{}, mapLookupErr(err, "ticket")
	}
	caps, err := CapabilitiesFor(ctx, s.repos.Participants, actor, ticket)
	if err != nil {
		return nil, Capabilities{}, apperrors.MapError(err)
	}
	return ticket, caps, nil
}

// applyParticipantDiff removes current participants missing from the keep
// list, adds the new ones, and records one combined internal audit message.
func (s *TicketService) applyParticipantDiff(ctx context.Context, r *repository.Repositories, actor *domain.User, ticket *domain.Ticket, keep *[]string, add []string) error {
	current, err := r.Participants.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}

	var removed, added []string

	if keep != nil {
		keepSet := make(map[string]struct{}, len(*keep))
		for _, id := range *keep {
			keepSet[id] = struct{}{}
		}
		for _, p := range current {
			if _, ok := keepSet[p.UserID]; ok {
				continue
			}
			if err := r.Participants.Remove(ctx, ticket.ID, p.UserID); err != nil {
				return err
			}
			removed = append(removed, p.UserID)
		}
	}

	for _, userID := range add {
		candidate, err := r.Users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("participant not found", map[string]any{"user_id": userID})
			}
			return err
		}
		if !candidate.BelongsTo(ticket.TenantID) || !candidate.IsActive {
			return apperrors.NewValidationError("participant must be an active member of the ticket's tenant",
				map[string]any{"user_id": userID})
		}
		if err := r.Participants.Add(ctx, &domain.TicketParticipant{
			TicketID: ticket.ID,
			UserID:   candidate.ID,
			AddedBy:  actor.ID,
		}); err != nil {
			return err
		}
		added = append(added, candidate.ID)
	}

	if len(removed) == 0 && len(added) == 0 {
		return nil
	}

	return r.Messages.Create(ctx, &domain.Message{
		TicketID:   ticket.ID,
		UserID:     actor.ID,
		Content:    fmt.Sprintf("Participants updated: %d added, %d removed", len(added), len(removed)),
		IsInternal: true,
	})
}

func (s *TicketService) storeSecureKey(ctx context.Context, r *repository.Repositories, actor *domain.User, ticket *domain.Ticket, input *SecureKeyInput, messageID *string) (*domain.SecureKey, error) {
	ciphertext, iv, err := s.vault.Encrypt(input.Value)
	if err != nil {
		return nil, err
	}

	key := &domain.SecureKey{
		TicketID:       ticket.ID,
		MessageID:      messageID,
		Label:          strings.TrimSpace(input.Label),
		EncryptedValue: ciphertext,
		IV:             iv,
		CreatedBy:      actor.ID,
	}
	if err := r.SecureKeys.Create(ctx, key); err != nil {
		return nil, err
	}

	if err := r.Messages.Create(ctx, &domain.Message{
		TicketID:   ticket.ID,
		UserID:     actor.ID,
		Content:    fmt.Sprintf("Secure key added: %s", key.Label),
		IsInternal: true,
	}); err != nil {
		return nil, err
	}
	return key, nil
}

func validateSecureKeyInput(ticket *domain.Ticket, input *SecureKeyInput) error {
	if ticket.Status == domain.TicketStatusClosed {
		return apperrors.NewConflict("cannot attach secure keys to a closed ticket", nil)
	}
	if strings.TrimSpace(input.Value) == "" {
		return apperrors.NewValidationError("secure key value required", nil)
	}
	if strings.TrimSpace(input.Label) == "" {
		return apperrors.NewValidationError("secure key label required", nil)
	}
	if !input.RiskAcknowledged {
		return apperrors.NewValidationError("secure key risk acknowledgment required", nil)
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func mapLookupErr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}
