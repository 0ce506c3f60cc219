package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminHandler exposes tenant, account, and settings administration.
type AdminHandler struct {
	tenants  *service.TenantService
	users    *service.UserService
	settings *service.SettingsService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(tenants *service.TenantService, users *service.UserService, settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{tenants: tenants, users: users, settings: settings}
}

// CreateTenant POST /admin/tenants.
func (h *AdminHandler) CreateTenant(c *fiber.Ctx) error {
	var req dto.CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tenant, err := h.tenants.CreateTenant(c.Context(), service.TenantCreateInput{
		Name:    req.Name,
		Slug:    req.Slug,
		Domains: req.Domains,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTenantResponse(tenant)})
}

// ListTenants GET /admin/tenants.
func (h *AdminHandler) ListTenants(c *fiber.Ctx) error {
	tenants, err := h.tenants.ListTenants(c.Context())
	if err != nil {
		return err
	}
	responses := make([]dto.TenantResponse, 0, len(tenants))
	for i := range tenants {
		responses = append(responses, dto.NewTenantResponse(&tenants[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// GetTenant GET /admin/tenants/:id.
func (h *AdminHandler) GetTenant(c *fiber.Ctx) error {
	tenant, err := h.tenants.GetTenant(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTenantResponse(tenant)})
}

// UpdateTenant PATCH /admin/tenants/:id.
func (h *AdminHandler) UpdateTenant(c *fiber.Ctx) error {
	var req dto.UpdateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tenant, err := h.tenants.UpdateTenant(c.Context(), c.Params("id"), service.TenantCreateInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTenantResponse(tenant)})
}

// SetTenantActive POST /admin/tenants/:id/active.
func (h *AdminHandler) SetTenantActive(c *fiber.Ctx) error {
	var req dto.TenantActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tenant, err := h.tenants.SetTenantActive(c.Context(), c.Params("id"), req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTenantResponse(tenant)})
}

// ListTenantDomains GET /admin/tenants/:id/domains.
func (h *AdminHandler) ListTenantDomains(c *fiber.Ctx) error {
	domains, err := h.tenants.ListDomains(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	responses := make([]dto.TenantDomainResponse, 0, len(domains))
	for _, d := range domains {
		responses = append(responses, dto.TenantDomainResponse{
			Domain:    d.Domain,
			CreatedAt: d.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": responses})
}

// ClaimDomain POST /admin/tenants/:id/domains.
func (h *AdminHandler) ClaimDomain(c *fiber.Ctx) error {
	var req dto.ClaimDomainRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Domain == "" {
		return apperrors.NewValidationError("domain required", nil)
	}

	if err := h.tenants.ClaimDomain(c.Context(), c.Params("id"), req.Domain); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"domain": req.Domain}})
}

// ReleaseDomain DELETE /admin/tenants/:id/domains/:domain.
func (h *AdminHandler) ReleaseDomain(c *fiber.Ctx) error {
	if err := h.tenants.ReleaseDomain(c.Context(), c.Params("id"), c.Params("domain")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"released": true}})
}

// CreateUser POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.CreateUser(c.Context(), principal.User, service.UserCreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
		TenantID: req.TenantID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var tenantID *string
	if raw := c.Query("tenant_id"); raw != "" {
		tenantID = &raw
	}

	users, err := h.users.ListUsers(c.Context(), principal.User, tenantID)
	if err != nil {
		return err
	}
	responses := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// GetUser GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// SetUserActive POST /admin/users/:id/active.
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UserActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.SetUserActive(c.Context(), principal.User, c.Params("id"), req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteUser DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	if err := h.users.DeleteUser(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListSettings GET /admin/settings.
func (h *AdminHandler) ListSettings(c *fiber.Ctx) error {
	settings, err := h.settings.All(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settings})
}

// UpdateSetting PUT /admin/settings/:key.
func (h *AdminHandler) UpdateSetting(c *fiber.Ctx) error {
	var req dto.UpdateSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	key := c.Params("key")
	if err := h.settings.Set(c.Context(), key, req.Value); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"key": key, "value": req.Value}})
}
