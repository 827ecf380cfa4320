package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// LocalsPrincipalID is the fiber.Locals key holding the authenticated principal id.
	LocalsPrincipalID = "principal_id"
	// LocalsSessionID is the fiber.Locals key holding the live session id.
	LocalsSessionID = "session_id"
	// LocalsPermissions is the fiber.Locals key holding the resolved permission set.
	LocalsPermissions = "permissions"

	// MsgNotPermitted is the only message a denied request ever gets.
	MsgNotPermitted = "not permitted"
)

// SetPrincipal stores the authenticated principal on the request.
func SetPrincipal(c *fiber.Ctx, principalID uuid.UUID, sessionID string) {
	c.Locals(LocalsPrincipalID, principalID)
	c.Locals(LocalsSessionID, sessionID)
}

// PrincipalFromContext returns the principal set by the session middleware.
func PrincipalFromContext(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalsPrincipalID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}

	return id, true
}

// SessionFromContext returns the session id set by the session middleware.
func SessionFromContext(c *fiber.Ctx) string {
	sid, _ := c.Locals(LocalsSessionID).(string)
	return sid
}

// PermissionsFromContext returns the permission set resolved for this request, if any.
func PermissionsFromContext(c *fiber.Ctx) *ResolvedPermissions {
	rp, _ := c.Locals(LocalsPermissions).(*ResolvedPermissions)
	return rp
}

// Deny writes the generic denial for err.
func Deny(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNoPrincipal), errors.Is(err, ErrSessionExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, ErrStoreUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporarily unavailable, retry"})
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": MsgNotPermitted})
	}
}

// check is the shared body of the Require* middlewares.
func check(c *fiber.Ctx, permissions []PermissionKey, test func(*ResolvedPermissions) bool, authService *Service) error {
	principalID, ok := PrincipalFromContext(c)
	if !ok {
		return Deny(c, ErrNoPrincipal)
	}

	rp, err := authService.Resolve(c.UserContext(), principalID)
	if err != nil {
		log.Error().Err(err).Str("principal_id", principalID.String()).Interface("permissions", permissions).
			Msg("failed to check permission")

		return Deny(c, err)
	}

	if !test(rp) {
		log.Warn().Str("principal_id", principalID.String()).Interface("permissions", permissions).
			Msg("principal lacks required permission")

		return Deny(c, ErrPermissionDenied)
	}

	c.Locals(LocalsPermissions, rp)

	return c.Next()
}

// RequirePermission creates Fiber middleware that requires a specific permission.
func RequirePermission(authService *Service, permission PermissionKey) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return check(c, []PermissionKey{permission}, func(rp *ResolvedPermissions) bool {
			return rp.Has(permission)
		}, authService)
	}
}

// RequireAnyPermission creates Fiber middleware that requires at least one of the given permissions.
func RequireAnyPermission(authService *Service, permissions ...PermissionKey) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return check(c, permissions, func(rp *ResolvedPermissions) bool {
			for _, p := range permissions {
				if rp.Has(p) {
					return true
				}
			}

			return false
		}, authService)
	}
}

// RequireAllPermissions creates Fiber middleware that requires all the given permissions.
func RequireAllPermissions(authService *Service, permissions ...PermissionKey) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return check(c, permissions, func(rp *ResolvedPermissions) bool {
			if len(permissions) == 0 {
				return false
			}

			for _, p := range permissions {
				if !rp.Has(p) {
					return false
				}
			}

			return true
		}, authService)
	}
}

// RequireAdmin creates Fiber middleware that requires an effective role at LevelAdmin or above.
func RequireAdmin(authService *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return check(c, nil, func(rp *ResolvedPermissions) bool {
			return rp.IsAdmin()
		}, authService)
	}
}
