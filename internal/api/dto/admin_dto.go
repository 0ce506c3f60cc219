package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTenantRequest payload.
type CreateTenantRequest struct {
	Name    string   `json:"name"`
	Slug    string   `json:"slug"`
	Domains []string `json:"domains,omitempty"`
}

// UpdateTenantRequest payload; empty fields stay unchanged.
type UpdateTenantRequest struct {
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// TenantActiveRequest payload.
type TenantActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// ClaimDomainRequest payload.
type ClaimDomainRequest struct {
	Domain string `json:"domain"`
}

// TenantResponse response.
type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTenantResponse maps a domain tenant.
func NewTenantResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
	}
}

// TenantDomainResponse response.
type TenantDomainResponse struct {
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserRequest provisions an account.
type CreateUserRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	TenantID *string     `json:"tenant_id,omitempty"`
}

// UserActiveRequest payload.
type UserActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// UpdateSettingRequest payload.
type UpdateSettingRequest struct {
	Value string `json:"value"`
}
