package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mindboost/academy-auth/internal/api/dto"
	"github.com/mindboost/academy-auth/internal/auth"
	"github.com/mindboost/academy-auth/internal/observability"
	"github.com/mindboost/academy-auth/internal/service"
	apperrors "github.com/mindboost/academy-auth/pkg/util/errorutil"
)

// AdminHandler exposes super-admin operations.
type AdminHandler struct {
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{auth: authService, metrics: metrics}
}

// AssignRole handles PATCH /api/admin/users/:id/role.
func (h *AdminHandler) AssignRole(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}

	var req dto.AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.AssignRole(c.UserContext(), identity, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Metrics handles GET /api/admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
