package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// UserService covers administrative account management: provisioning
// staff and org accounts, deactivation, and removal. Self-registration
// lives in AuthService.
type UserService struct {
	uow        repository.UnitOfWork
	repos      *repository.Repositories
	logger     *zap.Logger
	iterations int
}

// NewUserService builds the service.
func NewUserService(cfg config.SessionConfig, uow repository.UnitOfWork, repos *repository.Repositories, logger *zap.Logger) *UserService {
	return &UserService{
		uow:        uow,
		repos:      repos,
		logger:     logger,
		iterations: cfg.PasswordIterations,
	}
}

// UserCreateInput carries fields for an admin-provisioned account.
type UserCreateInput struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	TenantID *string     `json:"tenant_id,omitempty"`
}

// CreateUser provisions an account on behalf of an administrator.
// super_admin can mint any role; agent_admin can mint agents and
// tenant-scoped accounts but never another manager. Provisioned
// accounts must change their password on first login.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if !actor.Role.IsGlobalManager() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if !input.Role.IsValid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if actor.Role == domain.RoleAgentAdmin && input.Role.IsGlobalManager() {
		return nil, apperrors.NewForbidden("cannot grant a role above your own")
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if input.Email == "" || input.Name == "" {
		return nil, apperrors.NewValidationError("email and name required", nil)
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	if input.Role.IsInternal() {
		if input.TenantID != nil {
			return nil, apperrors.NewValidationError("internal roles cannot be tenant-scoped", nil)
		}
	} else {
		if input.TenantID == nil {
			return nil, apperrors.NewValidationError("tenant_id required for this role", nil)
		}
		tenant, err := s.repos.Tenants.GetByID(ctx, *input.TenantID)
		if err != nil {
			return nil, mapLookupErr(err, "tenant")
		}
		if !tenant.IsActive {
			return nil, apperrors.NewConflict("tenant is inactive", nil)
		}
	}

	if _, err := s.repos.Users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Email:              input.Email,
		Name:               input.Name,
		PasswordHash:       auth.HashPassword(input.Password, salt, s.iterations),
		Salt:               salt,
		Role:               input.Role,
		TenantID:           input.TenantID,
		IsActive:           true,
		MustChangePassword: true,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user provisioned",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("by", actor.ID))
	return user, nil
}

// GetUser fetches one account.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}
	return user, nil
}

// ListUsers returns accounts visible to the actor: managers see the
// internal team and any tenant; org_admin sees only their own tenant.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, tenantID *string) ([]domain.User, error) {
	switch {
	case actor.Role.IsGlobalManager():
		if tenantID != nil {
			users, err := s.repos.Users.ListByTenant(ctx, *tenantID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return users, nil
		}
		users, err := s.repos.Users.ListInternal(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return users, nil
	case actor.Role == domain.RoleOrgAdmin:
		if actor.TenantID == nil {
			return nil, apperrors.NewForbidden("no tenant context")
		}
		if tenantID != nil && *tenantID != *actor.TenantID {
			return nil, apperrors.NewForbidden("cannot list users of another organization")
		}
		users, err := s.repos.Users.ListByTenant(ctx, *actor.TenantID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return users, nil
	default:
		return nil, apperrors.NewForbidden("insufficient role")
	}
}

// SetUserActive toggles an account. Deactivation takes effect at the
// next request: the session middleware re-resolves the user each time.
func (s *UserService) SetUserActive(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error) {
	user, err := s.authorizeManage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, mapLookupErr(err, "user")
	}
	s.logger.Info("user active flag changed",
		zap.String("user_id", id),
		zap.Bool("is_active", active),
		zap.String("by", actor.ID))
	return user, nil
}

// DeleteUser removes an account. An account that authored tickets is
// deactivated instead, preserving ticket history; one with no tickets is
// hard-deleted along with its messages, participant rows, and any
// assignments pointing at it, in a single transaction.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	user, err := s.authorizeManage(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return apperrors.NewConflict("cannot delete your own account", nil)
	}

	owned, err := s.repos.Tickets.CountByCreator(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if owned > 0 {
		user.IsActive = false
		if err := s.repos.Users.Update(ctx, user); err != nil {
			return mapLookupErr(err, "user")
		}
		s.logger.Info("user deactivated in place of deletion",
			zap.String("user_id", id),
			zap.Int("tickets_owned", owned))
		return nil
	}

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Messages.DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := r.Participants.DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := r.Tickets.ClearAssignee(ctx, id); err != nil {
			return err
		}
		return r.Users.Delete(ctx, id)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("user deleted",
		zap.String("user_id", id),
		zap.String("by", actor.ID))
	return nil
}

// authorizeManage loads the target and checks the actor may administer
// it. Managers administer anyone below their own tier; org_admin
// administers only plain users of their own tenant.
func (s *UserService) authorizeManage(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "user")
	}
	switch {
	case actor.Role == domain.RoleSuperAdmin:
		return user, nil
	case actor.Role == domain.RoleAgentAdmin:
		if user.Role.IsGlobalManager() {
			return nil, apperrors.NewForbidden("cannot administer this account")
		}
		return user, nil
	case actor.Role == domain.RoleOrgAdmin:
		if user.Role != domain.RoleUser || actor.TenantID == nil || !user.BelongsTo(*actor.TenantID) {
			return nil, apperrors.NewForbidden("cannot administer this account")
		}
		return user, nil
	default:
		return nil, apperrors.NewForbidden("insufficient role")
	}
}
