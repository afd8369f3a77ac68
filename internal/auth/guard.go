package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/inventory-auth/internal/domain"
)

// Check allows the request when no roles are required, or when the context is
// authenticated and holds at least one required role.
func Check(sc SecurityContext, required []domain.Role) error {
	if len(required) == 0 {
		return nil
	}
	if !sc.Authenticated() || !sc.HasAnyRole(required...) {
		return ErrForbidden
	}
	return nil
}

// Require guards a route with the given roles.
func Require(roles ...domain.Role) fiber.Handler {
	required := append([]domain.Role(nil), roles...)
	return func(c *fiber.Ctx) error {
		if err := Check(FromContext(c), required); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated guards a route that any known role may reach.
func RequireAuthenticated() fiber.Handler {
	return Require(domain.AllRoles()...)
}
