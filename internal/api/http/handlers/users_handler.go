package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/inventory-auth/internal/api/dto"
	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/domain"
	"github.com/spec-kit/inventory-auth/internal/service"
	apperrors "github.com/spec-kit/inventory-auth/pkg/errorutil"
)

// UsersHandler exposes account endpoints for authenticated users and administrators.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	sc := auth.FromContext(c)
	user, err := h.auth.Profile(c.UserContext(), sc.Subject)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// ChangePassword handles POST /api/users/me/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sc := auth.FromContext(c)
	if err := h.auth.ChangePassword(c.UserContext(), sc.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "password changed"}})
}

// UpdateRoles handles PUT /api/users/:username/roles.
func (h *UsersHandler) UpdateRoles(c *fiber.Ctx) error {
	var req dto.UpdateRolesRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	roles := make([]domain.Role, 0, len(req.Roles))
	for _, name := range req.Roles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return apperrors.NewValidationError(map[string]string{"roles": err.Error()})
		}
		roles = append(roles, role)
	}

	username := c.Params("username")
	if err := h.auth.UpdateRoles(c.UserContext(), auth.FromContext(c).Subject, username, roles); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"username": username, "roles": domain.RoleNames(roles)}})
}

// UpdateStatus handles PUT /api/users/:username/status.
func (h *UsersHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	username := c.Params("username")
	if err := h.auth.SetActive(c.UserContext(), auth.FromContext(c).Subject, username, *req.Active); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"username": username, "active": *req.Active}})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Active:    user.Active,
		Roles:     domain.RoleNames(user.Roles),
	}
}
