package domain

import "time"

// Role enumerates the fixed capability tiers, broadest first.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAgentAdmin Role = "agent_admin"
	RoleAgent      Role = "agent"
	RoleOrgAdmin   Role = "org_admin"
	RoleUser       Role = "user"
)

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAgentAdmin, RoleAgent, RoleOrgAdmin, RoleUser:
		return true
	}
	return false
}

// IsInternal reports whether the role belongs to the internal team that
// services tickets across tenants.
func (r Role) IsInternal() bool {
	return r == RoleSuperAdmin || r == RoleAgentAdmin || r == RoleAgent
}

// IsGlobalManager reports whether the role carries cross-tenant management
// capability (reassignment, every-ticket scope).
func (r Role) IsGlobalManager() bool {
	return r == RoleSuperAdmin || r == RoleAgentAdmin
}

// User is an account in any role. TenantID is nil for internal-team
// members, who operate without a tenant context.
type User struct {
	ID                 string
	Email              string
	Name               string
	PasswordHash       string
	Salt               string
	Role               Role
	TenantID           *string
	IsActive           bool
	MustChangePassword bool
	LastLoginAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BelongsTo reports whether the user is scoped to the given tenant.
func (u *User) BelongsTo(tenantID string) bool {
	return u.TenantID != nil && *u.TenantID == tenantID
}
