package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/inventory-auth/internal/domain"
)

type stubValidator struct {
	subject string
	roles   []domain.Role
	err     error
	calls   []string
}

func (s *stubValidator) Validate(_ context.Context, token string) (string, []domain.Role, error) {
	s.calls = append(s.calls, token)
	if s.err != nil {
		return "", nil, s.err
	}
	return s.subject, s.roles, nil
}

func newTestApp(validator TokenValidator) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			switch {
			case errors.Is(err, ErrUnauthenticated):
				return c.Status(fiber.StatusUnauthorized).SendString(Kind(err))
			case errors.Is(err, ErrForbidden):
				return c.SendStatus(fiber.StatusForbidden)
			default:
				return c.SendStatus(fiber.StatusInternalServerError)
			}
		},
	})

	mw := NewAuthMiddleware(validator, nil, "/api/auth/", "/api/files/uploads")
	app.Use(mw.Handle)

	whoami := func(c *fiber.Ctx) error {
		sc := FromContext(c)
		if !sc.Authenticated() {
			return c.SendString("anonymous")
		}
		return c.SendString(sc.Subject + ":" + strings.Join(domain.RoleNames(sc.Roles), ","))
	}
	app.Get("/api/auth/validate", whoami)
	app.Get("/api/files/uploads/a.png", whoami)
	app.Get("/api/open", whoami)
	app.Get("/api/products", Require(domain.RoleAdmin, domain.RoleInventory), whoami)
	app.Get("/api/me", RequireAuthenticated(), whoami)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware_AnonymousWithoutHeader(t *testing.T) {
	validator := &stubValidator{}
	app := newTestApp(validator)

	status, body := doRequest(t, app, "/api/open", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)
	assert.Empty(t, validator.calls)
}

func TestAuthMiddleware_NonBearerHeaderIsAnonymous(t *testing.T) {
	validator := &stubValidator{err: ErrMalformedToken}
	app := newTestApp(validator)

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Token abc", "Bearer a b"} {
		status, body := doRequest(t, app, "/api/open", header)
		assert.Equal(t, http.StatusOK, status, header)
		assert.Equal(t, "anonymous", body, header)
	}
	assert.Empty(t, validator.calls)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator := &stubValidator{subject: "alice", roles: []domain.Role{domain.RoleAdmin}}
	app := newTestApp(validator)

	status, body := doRequest(t, app, "/api/products", "bearer tok-1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice:ADMIN", body)
	assert.Equal(t, []string{"tok-1"}, validator.calls)
}

func TestAuthMiddleware_InvalidTokenEndsRequest(t *testing.T) {
	for _, cause := range []error{ErrMalformedToken, ErrInvalidSignature, ErrTokenExpired, ErrAccountDisabled, ErrPrincipalNotFound} {
		app := newTestApp(&stubValidator{err: cause})

		status, body := doRequest(t, app, "/api/open", "Bearer bad")
		assert.Equal(t, http.StatusUnauthorized, status, cause.Error())
		assert.Equal(t, Kind(cause), body)
	}
}

func TestAuthMiddleware_InfrastructureErrorIsNotUnauthenticated(t *testing.T) {
	app := newTestApp(&stubValidator{err: errors.New("db unavailable")})

	status, _ := doRequest(t, app, "/api/open", "Bearer tok")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestAuthMiddleware_PublicPrefixIgnoresToken(t *testing.T) {
	validator := &stubValidator{err: ErrInvalidSignature}
	app := newTestApp(validator)

	status, body := doRequest(t, app, "/api/auth/validate", "Bearer forged")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "anonymous", body)

	status, _ = doRequest(t, app, "/api/files/uploads/a.png", "Bearer forged")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, validator.calls)
}

func TestAuthMiddleware_IsPublic(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{}, nil, "/api/auth")

	assert.True(t, mw.IsPublic("/api/auth"))
	assert.True(t, mw.IsPublic("/api/auth/login"))
	assert.False(t, mw.IsPublic("/api/authors"))
	assert.False(t, mw.IsPublic("/api/users/me"))
}

func TestAuthMiddleware_IsPublicIgnoresCase(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{}, nil, "/api/auth")

	assert.True(t, mw.IsPublic("/API/AUTH"))
	assert.True(t, mw.IsPublic("/API/AUTH/login"))
	assert.True(t, mw.IsPublic("/Api/Auth/refresh"))
	assert.False(t, mw.IsPublic("/API/authors"))
	assert.False(t, mw.IsPublic("/API/USERS/me"))
}

func TestGuard_AnonymousAndWrongRole(t *testing.T) {
	app := newTestApp(&stubValidator{subject: "bob", roles: []domain.Role{domain.RoleSales}})

	status, _ := doRequest(t, app, "/api/products", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, app, "/api/products", "Bearer tok")
	assert.Equal(t, http.StatusForbidden, status)

	status, body := doRequest(t, app, "/api/me", "Bearer tok")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob:SALES", body)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"Bearerabc", "", false},
	}

	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestCheck(t *testing.T) {
	admin := SecurityContext{Subject: "alice", Roles: []domain.Role{domain.RoleAdmin}}
	anonymous := SecurityContext{}

	assert.NoError(t, Check(anonymous, nil))
	assert.NoError(t, Check(admin, []domain.Role{domain.RoleSales, domain.RoleAdmin}))
	assert.ErrorIs(t, Check(admin, []domain.Role{domain.RoleInventory}), ErrForbidden)
	assert.ErrorIs(t, Check(anonymous, []domain.Role{domain.RoleAdmin}), ErrForbidden)
	assert.ErrorIs(t, Check(SecurityContext{Subject: "ghost"}, domain.AllRoles()), ErrForbidden)
}
