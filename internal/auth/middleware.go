package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/inventory-auth/internal/domain"
)

// TokenValidator validates a presented access token against the live principal.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, []domain.Role, error)
}

// AuthMiddleware establishes the security context for every request.
type AuthMiddleware struct {
	tokens         TokenValidator
	publicPrefixes []string
	logger         *zap.Logger
}

// NewAuthMiddleware constructs middleware. Requests under publicPrefixes skip token processing.
func NewAuthMiddleware(tokens TokenValidator, logger *zap.Logger, publicPrefixes ...string) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefixes := make([]string, 0, len(publicPrefixes))
	for _, prefix := range publicPrefixes {
		if prefix = strings.TrimRight(prefix, "/"); prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	return &AuthMiddleware{tokens: tokens, publicPrefixes: prefixes, logger: logger}
}

// Handle resolves the bearer token, if any. A missing or non-bearer header leaves the
// request anonymous; a bearer token that fails validation ends the request.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if m.IsPublic(c.Path()) {
		setSecurityContext(c, SecurityContext{})
		return c.Next()
	}

	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		setSecurityContext(c, SecurityContext{})
		return c.Next()
	}

	subject, roles, err := m.tokens.Validate(c.UserContext(), token)
	if err != nil {
		if !IsAuthFailure(err) {
			return err
		}
		m.logger.Debug("token rejected", zap.String("path", c.Path()), zap.String("kind", Kind(err)))
		return Unauthenticated(err)
	}

	setSecurityContext(c, SecurityContext{Subject: subject, Roles: roles})
	return c.Next()
}

// IsPublic reports whether path falls under one of the public prefixes. Matching
// ignores case, like the router.
func (m *AuthMiddleware) IsPublic(path string) bool {
	for _, prefix := range m.publicPrefixes {
		if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
			continue
		}
		if len(path) == len(prefix) || path[len(prefix)] == '/' {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
