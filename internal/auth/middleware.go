package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the authenticated caller, re-resolved from the database on
// every request so deactivation takes effect without an explicit logout.
type Principal struct {
	User   *domain.User
	Tenant *domain.Tenant
}

// SessionMiddleware resolves signed session cookies into principals.
type SessionMiddleware struct {
	codec      *TokenCodec
	cookieName string
	users      repository.UserRepository
	tenants    repository.TenantRepository
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(codec *TokenCodec, cookieName string, users repository.UserRepository, tenants repository.TenantRepository) *SessionMiddleware {
	return &SessionMiddleware{codec: codec, cookieName: cookieName, users: users, tenants: tenants}
}

// Handle loads the principal when a valid session cookie is present. A
// forged, tampered, or stale cookie is cleared and the request continues
// as anonymous; route guards decide whether that is acceptable.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Cookies(m.cookieName)
	if token == "" {
		return c.Next()
	}

	claims, err := m.codec.Decode(token)
	if err != nil {
		ClearSessionCookie(c, m.cookieName)
		return c.Next()
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			ClearSessionCookie(c, m.cookieName)
			return c.Next()
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		ClearSessionCookie(c, m.cookieName)
		return c.Next()
	}

	principal := &Principal{User: user}
	if user.TenantID != nil {
		tenant, err := m.tenants.GetByID(c.Context(), *user.TenantID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				ClearSessionCookie(c, m.cookieName)
				return c.Next()
			}
			return apperrors.MapError(err)
		}
		if !tenant.IsActive {
			ClearSessionCookie(c, m.cookieName)
			return c.Next()
		}
		principal.Tenant = tenant
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// RequireAuth ensures a principal is present.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// SetSessionCookie writes the session cookie with the required attributes.
func SetSessionCookie(c *fiber.Ctx, name, token string, maxAge time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
