package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/inventory-auth/internal/domain"
)

const securityContextKey = "auth_security_context"

// SecurityContext is the per-request identity. The zero value is anonymous.
type SecurityContext struct {
	Subject string
	Roles   []domain.Role
}

// Authenticated reports whether an identity was established.
func (sc SecurityContext) Authenticated() bool {
	return sc.Subject != ""
}

// HasAnyRole reports whether the context holds at least one of the given roles.
func (sc SecurityContext) HasAnyRole(roles ...domain.Role) bool {
	for _, held := range sc.Roles {
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

func setSecurityContext(c *fiber.Ctx, sc SecurityContext) {
	c.Locals(securityContextKey, sc)
}

// FromContext returns the security context for the request, or an anonymous one.
func FromContext(c *fiber.Ctx) SecurityContext {
	sc, _ := c.Locals(securityContextKey).(SecurityContext)
	return sc
}
