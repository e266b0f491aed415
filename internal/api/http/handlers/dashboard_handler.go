package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mindboost/academy-auth/internal/auth"
	apperrors "github.com/mindboost/academy-auth/pkg/util/errorutil"
)

// DashboardHandler serves the per-role dashboard landing data. Dashboard
// content itself is owned by the course services; this only confirms access.
type DashboardHandler struct{}

// NewDashboardHandler constructs handler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Show returns the dashboard name and the caller it was opened for.
func (h *DashboardHandler) Show(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated()
		}
		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"dashboard": name,
				"userId":    identity.UserID,
				"role":      identity.Role,
			},
		})
	}
}
