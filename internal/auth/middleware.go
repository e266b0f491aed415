package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mindboost/academy-auth/internal/domain"
	apperrors "github.com/mindboost/academy-auth/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// RejectionRecorder counts rejected tokens by failure kind.
type RejectionRecorder interface {
	RecordTokenRejection(reason string)
}

// AuthMiddleware validates bearer tokens and attaches the caller identity.
type AuthMiddleware struct {
	tokens   *TokenService
	logger   *zap.Logger
	recorder RejectionRecorder
}

// NewAuthMiddleware constructs middleware. recorder may be nil.
func NewAuthMiddleware(tokens *TokenService, logger *zap.Logger, recorder RejectionRecorder) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger, recorder: recorder}
}

// Handle enforces authentication for protected routes. Every failure produces
// the same generic 401 body; the reason only reaches logs and metrics.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	tokenStr, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		m.reject(c, "missing")
		return apperrors.NewUnauthenticated()
	}

	identity, err := m.tokens.Verify(tokenStr)
	if err != nil {
		m.reject(c, KindOf(err).String())
		return apperrors.NewUnauthenticated()
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, reason string) {
	m.logger.Info("request rejected",
		zap.String("reason", reason),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()))
	if m.recorder != nil {
		m.recorder.RecordTokenRejection(reason)
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
