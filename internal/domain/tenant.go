package domain

import "time"

// Tenant is the top-level multi-tenancy boundary: an organization whose
// users raise tickets.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
}

// TenantDomain maps one email domain to the tenant that owns it. Domains
// are globally unique, so a domain resolves to at most one tenant.
type TenantDomain struct {
	ID        string
	TenantID  string
	Domain    string
	CreatedAt time.Time
}
