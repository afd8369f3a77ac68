package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/inventory-auth/internal/api/dto"
	apperrors "github.com/spec-kit/inventory-auth/pkg/errorutil"
)

// bind parses the JSON body into payload and validates it.
func bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	return dto.Validate(payload)
}
