package auth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mindboost/academy-auth/internal/domain"
	apperrors "github.com/mindboost/academy-auth/pkg/util/errorutil"
)

// ErrGateWithoutAuthentication is the panic value raised when a role gate runs
// on a route that is not behind AuthMiddleware.
var ErrGateWithoutAuthentication = errors.New("auth: role gate reached without an authenticated identity; mount AuthMiddleware first")

// RequireRole allows the request through only when the caller's role is in
// allowed. Matching is exact; there is no role hierarchy.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	if len(allowed) == 0 {
		panic("auth: RequireRole needs at least one role")
	}
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		if !role.Valid() {
			panic(fmt.Sprintf("auth: RequireRole given unknown role %q", string(role)))
		}
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			panic(ErrGateWithoutAuthentication)
		}
		if _, permitted := allowedSet[identity.Role]; !permitted {
			return apperrors.NewForbidden()
		}
		return c.Next()
	}
}
