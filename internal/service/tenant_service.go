package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var (
	slugPattern        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	emailDomainPattern = regexp.MustCompile(`^[a-z0-9]+(?:[.-][a-z0-9]+)*\.[a-z]{2,}$`)
)

// TenantService manages organizations and their email domains. Only
// super_admin and agent_admin reach these operations; the handler layer
// enforces that.
type TenantService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewTenantService builds the service.
func NewTenantService(repos *repository.Repositories, logger *zap.Logger) *TenantService {
	return &TenantService{repos: repos, logger: logger}
}

// TenantCreateInput carries fields for creating an organization.
type TenantCreateInput struct {
	Name    string   `json:"name"`
	Slug    string   `json:"slug"`
	Domains []string `json:"domains"`
}

// CreateTenant registers an organization, optionally claiming its email
// domains in the same call.
func (s *TenantService) CreateTenant(ctx context.Context, input TenantCreateInput) (*domain.Tenant, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	if input.Name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if !slugPattern.MatchString(input.Slug) {
		return nil, apperrors.NewValidationError("slug must be lowercase letters, digits, and hyphens", nil)
	}
	if _, err := s.repos.Tenants.GetBySlug(ctx, input.Slug); err == nil {
		return nil, apperrors.NewConflict("slug already in use", nil)
	}

	tenant := &domain.Tenant{
		Name:     input.Name,
		Slug:     input.Slug,
		IsActive: true,
	}
	if err := s.repos.Tenants.Create(ctx, tenant); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, d := range input.Domains {
		if err := s.ClaimDomain(ctx, tenant.ID, d); err != nil {
			return nil, err
		}
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug))
	return tenant, nil
}

// UpdateTenant renames or re-slugs an organization.
func (s *TenantService) UpdateTenant(ctx context.Context, id string, input TenantCreateInput) (*domain.Tenant, error) {
	tenant, err := s.repos.Tenants.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "tenant")
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		tenant.Name = name
	}
	if slug := strings.ToLower(strings.TrimSpace(input.Slug)); slug != "" && slug != tenant.Slug {
		if !slugPattern.MatchString(slug) {
			return nil, apperrors.NewValidationError("slug must be lowercase letters, digits, and hyphens", nil)
		}
		if _, err := s.repos.Tenants.GetBySlug(ctx, slug); err == nil {
			return nil, apperrors.NewConflict("slug already in use", nil)
		}
		tenant.Slug = slug
	}

	if err := s.repos.Tenants.Update(ctx, tenant); err != nil {
		return nil, mapLookupErr(err, "tenant")
	}
	return tenant, nil
}

// SetTenantActive toggles an organization. Deactivation locks out its
// users at the next request without deleting any data.
func (s *TenantService) SetTenantActive(ctx context.Context, id string, active bool) (*domain.Tenant, error) {
	tenant, err := s.repos.Tenants.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "tenant")
	}
	tenant.IsActive = active
	if err := s.repos.Tenants.Update(ctx, tenant); err != nil {
		return nil, mapLookupErr(err, "tenant")
	}
	s.logger.Info("tenant active flag changed",
		zap.String("tenant_id", id),
		zap.Bool("is_active", active))
	return tenant, nil
}

// GetTenant fetches one organization.
func (s *TenantService) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.repos.Tenants.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "tenant")
	}
	return tenant, nil
}

// ListTenants returns all organizations.
func (s *TenantService) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := s.repos.Tenants.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tenants, nil
}

// ListDomains returns the email domains claimed by an organization.
func (s *TenantService) ListDomains(ctx context.Context, tenantID string) ([]domain.TenantDomain, error) {
	if _, err := s.repos.Tenants.GetByID(ctx, tenantID); err != nil {
		return nil, mapLookupErr(err, "tenant")
	}
	domains, err := s.repos.Tenants.ListDomains(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return domains, nil
}

// ClaimDomain associates an email domain with a tenant. A domain already
// owned by another tenant is rejected; re-claiming one's own domain is a
// no-op conflict so the caller learns nothing changed.
func (s *TenantService) ClaimDomain(ctx context.Context, tenantID, emailDomain string) error {
	emailDomain = strings.ToLower(strings.TrimSpace(emailDomain))
	if !emailDomainPattern.MatchString(emailDomain) {
		return apperrors.NewValidationError("invalid email domain",
			map[string]any{"domain": emailDomain})
	}

	if _, err := s.repos.Tenants.GetByID(ctx, tenantID); err != nil {
		return mapLookupErr(err, "tenant")
	}

	owner, err := s.repos.Tenants.DomainOwner(ctx, emailDomain)
	if err != nil {
		return apperrors.MapError(err)
	}
	if owner != nil {
		return apperrors.NewConflict("domain already claimed",
			map[string]any{"domain": emailDomain})
	}

	if err := s.repos.Tenants.AddDomain(ctx, tenantID, emailDomain); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("domain claimed",
		zap.String("tenant_id", tenantID),
		zap.String("domain", emailDomain))
	return nil
}

// ReleaseDomain removes a domain claim. Existing accounts registered
// through the domain are untouched; only future registrations stop.
func (s *TenantService) ReleaseDomain(ctx context.Context, tenantID, emailDomain string) error {
	emailDomain = strings.ToLower(strings.TrimSpace(emailDomain))
	if err := s.repos.Tenants.RemoveDomain(ctx, tenantID, emailDomain); err != nil {
		return mapLookupErr(err, "domain")
	}
	return nil
}
