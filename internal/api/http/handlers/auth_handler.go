package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/inventory-auth/internal/api/dto"
	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/service"
)

// AuthHandler exposes the public login/registration surface.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(pair)})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": authResponse(pair)})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(pair)})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the client discards them.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "logged out"}})
}

// Validate handles GET /api/auth/validate for the bearer token on the request.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return auth.Unauthenticated(auth.ErrMalformedToken)
	}

	subject, roles, err := h.auth.Validate(c.UserContext(), token)
	if err != nil {
		if auth.IsAuthFailure(err) {
			return auth.Unauthenticated(err)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenStatusResponse{
		Valid:       true,
		Username:    subject,
		Roles:       domain.RoleNames(roles),
		Authorities: (&domain.Principal{Subject: subject, Roles: roles}).Authorities(),
	}})
}

func authResponse(pair *service.TokenPair) dto.AuthResponse {
	return dto.AuthResponse{
		Token:            pair.AccessToken,
		TokenType:        "Bearer",
		ExpiresAt:        pair.ExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		Username:         pair.Subject,
		Roles:            domain.RoleNames(pair.Roles),
	}
}
