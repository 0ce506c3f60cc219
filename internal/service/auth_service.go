package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/otp"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const minPasswordLength = 8

// AuthService coordinates login, self-registration, and password flows.
// Self-registration is gated on email-domain resolution to an active
// tenant and an OTP round trip proving mailbox ownership.
type AuthService struct {
	uow        repository.UnitOfWork
	repos      *repository.Repositories
	otp        *otp.Service
	codec      *auth.TokenCodec
	sender     EmailSender
	dispatcher events.Dispatcher
	logger     *zap.Logger
	iterations int
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UnitOfWork repository.UnitOfWork
	Repos      *repository.Repositories
	OTP        *otp.Service
	Sender     EmailSender
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.SessionConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		uow:        deps.UnitOfWork,
		repos:      deps.Repos,
		otp:        deps.OTP,
		codec:      auth.NewTokenCodec(cfg.Secret, cfg.MaxAge()),
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		iterations: cfg.PasswordIterations,
	}
}

// TokenCodec exposes the codec for the session middleware.
func (s *AuthService) TokenCodec() *auth.TokenCodec {
	return s.codec
}

// Login authenticates by email and password and issues a session token.
// Inactive users and users of inactive tenants cannot log in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}
	if user.TenantID != nil {
		tenant, err := s.repos.Tenants.GetByID(ctx, *user.TenantID)
		if err != nil {
			return nil, "", apperrors.MapError(err)
		}
		if !tenant.IsActive {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
	}
	if !auth.VerifyPassword(password, user.PasswordHash, user.Salt, s.iterations) {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, "", apperrors.MapError(err)
	}

	token, err := s.codec.Encode(user)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// RequestRegistration starts self-registration: the email's domain must
// resolve to exactly one active tenant, and a code is mailed to prove
// mailbox ownership.
func (s *AuthService) RequestRegistration(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	emailDomain, err := domainOf(email)
	if err != nil {
		return err
	}

	if _, err := s.repos.Tenants.FindActiveByDomain(ctx, emailDomain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("email domain is not registered with any organization",
				map[string]any{"domain": emailDomain})
		}
		return apperrors.MapError(err)
	}

	if _, err := s.repos.Users.GetByEmail(ctx, email); err == nil {
		return apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}

	record, err := s.otp.Create(ctx, email, otp.TypeRegistration)
	if err != nil {
		return err
	}
	s.mailCode(ctx, email, "Confirm your registration", record.Code)
	return nil
}

// CompleteRegistration validates the code and creates the account. The
// role is always user; self-registration can never mint staff.
func (s *AuthService) CompleteRegistration(ctx context.Context, email, code, name, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	emailDomain, err := domainOf(email)
	if err != nil {
		return nil, err
	}

	tenant, err := s.repos.Tenants.FindActiveByDomain(ctx, emailDomain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("email domain is not registered with any organization", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.otp.Validate(ctx, email, otp.TypeRegistration, code); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, email, name, password, domain.RoleUser, &tenant.ID, false)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:  events.EventUserRegistered,
		Actor: events.Actor{UserID: user.ID, Role: user.Role},
		Payload: events.UserRegisteredPayload{
			Email:    user.Email,
			TenantID: tenant.ID,
		},
	})
	return user, nil
}

// RequestPasswordReset mails a code to an existing account. An unknown
// email is reported as success so the endpoint cannot enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.repos.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return apperrors.MapError(err)
	}

	record, err := s.otp.Create(ctx, email, otp.TypePasswordReset)
	if err != nil {
		return err
	}
	s.mailCode(ctx, email, "Your password reset code", record.Code)
	return nil
}

// ConfirmPasswordReset validates the code and replaces the password under
// a fresh salt.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("invalid code", nil)
		}
		return apperrors.MapError(err)
	}

	if err := s.otp.Validate(ctx, email, otp.TypePasswordReset, code); err != nil {
		return err
	}

	return s.setPassword(ctx, user, newPassword)
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error {
	if !auth.VerifyPassword(currentPassword, user.PasswordHash, user.Salt, s.iterations) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

// CompleteSetup bootstraps the first super_admin. It runs once; the
// setup_completed flag blocks re-runs.
func (s *AuthService) CompleteSetup(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	done, err := s.repos.Settings.Get(ctx, SettingSetupCompleted)
	if err == nil && done == "true" {
		return nil, apperrors.NewConflict("setup already completed", nil)
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: auth.HashPassword(password, salt, s.iterations),
		Salt:         salt,
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
	}

	err = s.uow.WithinTx(ctx, func(r *repository.Repositories) error {
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}
		return r.Settings.Set(ctx, SettingSetupCompleted, "true")
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, name, password string, role domain.Role, tenantID *string, mustChange bool) (*domain.User, error) {
	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Email:              email,
		Name:               name,
		PasswordHash:       auth.HashPassword(password, salt, s.iterations),
		Salt:               salt,
		Role:               role,
		TenantID:           tenantID,
		IsActive:           true,
		MustChangePassword: mustChange,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	salt, err := auth.GenerateSalt()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.Salt = salt
	user.PasswordHash = auth.HashPassword(password, salt, s.iterations)
	user.MustChangePassword = false
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AuthService) mailCode(ctx context.Context, email, subject, code string) {
	result := s.sender.Send(ctx, []string{email},
		subject, fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p>", code))
	if !result.Success {
		s.logger.Warn("verification email failed",
			zap.String("error", result.Error),
			zap.String("request_id", result.RequestID))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
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

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	return nil
}

func domainOf(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", apperrors.NewValidationError("invalid email address", nil)
	}
	return strings.ToLower(email[at+1:]), nil
}
