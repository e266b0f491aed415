package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindboost/academy-auth/internal/api/http/handlers"
	"github.com/mindboost/academy-auth/internal/auth"
	"github.com/mindboost/academy-auth/internal/config"
	"github.com/mindboost/academy-auth/internal/domain"
	"github.com/mindboost/academy-auth/internal/events"
	"github.com/mindboost/academy-auth/internal/observability"
	"github.com/mindboost/academy-auth/internal/persistence"
	"github.com/mindboost/academy-auth/internal/repository"
	"github.com/mindboost/academy-auth/internal/service"
)

type testServer struct {
	app     *fiber.App
	users   repository.UserRepository
	tokens  *auth.TokenService
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "router-test-secret"})
	require.NoError(t, err)

	users := repository.NewMemoryUserRepository()
	dispatcher := events.NewInMemoryDispatcher(logger)
	authService := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, service.AuthDependencies{
		UserRepo:    users,
		SessionRepo: repository.NewMemoryRefreshSessionRepository(),
		Tokens:      tokens,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	app := NewApp(AppConfig{Name: "test", RequestTimeout: 5 * time.Second, Logger: logger, Metrics: metrics}, RouteConfig{
		Health: handlers.NewHealthHandler("test", "dev", map[string]handlers.Pinger{
			"postgres": &persistence.Postgres{},
			"redis":    &persistence.Redis{},
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(authService, metrics),
		Dashboard:      handlers.NewDashboardHandler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, logger, metrics),
	})

	return &testServer{app: app, users: users, tokens: tokens, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func dig(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		require.True(t, ok, "expected object at %q", k)
		cur = obj[k]
	}
	return cur
}

func (s *testServer) promote(t *testing.T, email string, role domain.Role) {
	t.Helper()
	ctx := context.Background()
	user, err := s.users.GetByEmail(ctx, email)
	require.NoError(t, err)
	user.Role = role
	require.NoError(t, s.users.Update(ctx, user))
}

func TestRegisterLoginAndRoleGateScenario(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "secret1", "firstName": "A", "lastName": "B",
	})
	require.Equal(t, stdhttp.StatusCreated, status, "%v", body)
	assert.Equal(t, "LEARNER", dig(t, body, "data", "user", "role"))
	assert.NotContains(t, dig(t, body, "data", "user"), "passwordHash")

	registerToken := dig(t, body, "data", "auth", "token").(string)
	registered, err := srv.tokens.Verify(registerToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLearner, registered.Role)

	status, body = srv.do(t, stdhttp.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@b.com", "password": "secret1",
	})
	require.Equal(t, stdhttp.StatusOK, status)
	loginToken := dig(t, body, "data", "auth", "token").(string)
	loggedIn, err := srv.tokens.Verify(loginToken)
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, loggedIn.UserID)

	status, body = srv.do(t, stdhttp.MethodGet, "/api/dashboard/super-admin", loginToken, nil)
	assert.Equal(t, stdhttp.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", dig(t, body, "error", "code"))

	status, body = srv.do(t, stdhttp.MethodGet, "/api/dashboard/super-admin", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", dig(t, body, "error", "code"))

	status, body = srv.do(t, stdhttp.MethodGet, "/api/dashboard/learner", loginToken, nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "learner", dig(t, body, "data", "dashboard"))
}

func TestLoginFailuresAreUniform(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "secret1", "firstName": "A", "lastName": "B",
	})

	wrongPassword, body1 := srv.do(t, stdhttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "nope123"})
	unknownEmail, body2 := srv.do(t, stdhttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "x@b.com", "password": "secret1"})

	assert.Equal(t, stdhttp.StatusUnauthorized, wrongPassword)
	assert.Equal(t, stdhttp.StatusUnauthorized, unknownEmail)
	assert.Equal(t, body1, body2)

	status, _ := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "secret1", "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, stdhttp.StatusConflict, status)

	status, body := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", dig(t, body, "error", "code"))
}

func TestMeNeverExposesPasswordHash(t *testing.T) {
	srv := newTestServer(t)
	_, body := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "secret1", "firstName": "A", "lastName": "B",
	})
	token := dig(t, body, "data", "auth", "token").(string)

	status, body := srv.do(t, stdhttp.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	user := dig(t, body, "data").(map[string]any)
	assert.Equal(t, "a@b.com", user["email"])
	assert.Equal(t, "A", user["firstName"])
	for key := range user {
		assert.NotContains(t, []string{"passwordHash", "password_hash", "PasswordHash"}, key)
	}

	status, _ = srv.do(t, stdhttp.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
}

func TestRefreshLogoutAndPasswordChange(t *testing.T) {
	srv := newTestServer(t)
	_, body := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "secret1", "firstName": "A", "lastName": "B",
	})
	access := dig(t, body, "data", "auth", "token").(string)
	refresh := dig(t, body, "data", "auth", "refreshToken").(string)

	status, body := srv.do(t, stdhttp.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, stdhttp.StatusOK, status)
	rotated := dig(t, body, "data", "auth", "refreshToken").(string)

	status, _ = srv.do(t, stdhttp.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, stdhttp.StatusUnauthorized, status)

	status, _ = srv.do(t, stdhttp.MethodPost, "/api/auth/logout", "", map[string]string{"refreshToken": rotated})
	assert.Equal(t, stdhttp.StatusNoContent, status)
	status, _ = srv.do(t, stdhttp.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": rotated})
	assert.Equal(t, stdhttp.StatusUnauthorized, status)

	status, _ = srv.do(t, stdhttp.MethodPost, "/api/auth/password", access, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	assert.Equal(t, stdhttp.StatusNoContent, status)

	status, _ = srv.do(t, stdhttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "secret2"})
	assert.Equal(t, stdhttp.StatusOK, status)
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t)

	_, body := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "learner@b.com", "password": "secret1", "firstName": "L", "lastName": "B",
	})
	learnerID := dig(t, body, "data", "user", "id").(string)
	learnerToken := dig(t, body, "data", "auth", "token").(string)
	learnerRefresh := dig(t, body, "data", "auth", "refreshToken").(string)

	srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "root@b.com", "password": "secret1", "firstName": "R", "lastName": "B",
	})
	srv.promote(t, "root@b.com", domain.RoleSuperAdmin)
	_, body = srv.do(t, stdhttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@b.com", "password": "secret1"})
	adminToken := dig(t, body, "data", "auth", "token").(string)

	status, _ := srv.do(t, stdhttp.MethodPatch, "/api/admin/users/"+learnerID+"/role", learnerToken, map[string]string{"role": "SUPER_ADMIN"})
	assert.Equal(t, stdhttp.StatusForbidden, status, "learners cannot promote themselves")

	status, _ = srv.do(t, stdhttp.MethodPatch, "/api/admin/users/"+learnerID+"/role", adminToken, map[string]string{"role": "superadmin"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)

	status, body = srv.do(t, stdhttp.MethodPatch, "/api/admin/users/"+learnerID+"/role", adminToken, map[string]string{"role": "TEACHER"})
	require.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "TEACHER", dig(t, body, "data", "role"))

	status, _ = srv.do(t, stdhttp.MethodGet, "/api/dashboard/instructor", learnerToken, nil)
	assert.Equal(t, stdhttp.StatusForbidden, status, "old token keeps its old role")

	_, body = srv.do(t, stdhttp.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": learnerRefresh})
	teacherToken := dig(t, body, "data", "auth", "token").(string)
	status, _ = srv.do(t, stdhttp.MethodGet, "/api/dashboard/instructor", teacherToken, nil)
	assert.Equal(t, stdhttp.StatusOK, status)

	status, _ = srv.do(t, stdhttp.MethodGet, "/api/dashboard/prep-admin", adminToken, nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	status, _ = srv.do(t, stdhttp.MethodGet, "/api/dashboard/instructor", adminToken, nil)
	assert.Equal(t, stdhttp.StatusForbidden, status, "roles are not hierarchical")

	status, _ = srv.do(t, stdhttp.MethodPatch, "/api/admin/users/does-not-exist/role", adminToken, map[string]string{"role": "TEACHER"})
	assert.Equal(t, stdhttp.StatusNotFound, status)

	srv.do(t, stdhttp.MethodGet, "/api/auth/me", "garbage", nil)
	status, body = srv.do(t, stdhttp.MethodGet, "/api/admin/metrics", adminToken, nil)
	require.Equal(t, stdhttp.StatusOK, status)
	rejections := dig(t, body, "data", "tokenRejections").(map[string]any)
	assert.EqualValues(t, 1, rejections["malformed"])
}

func TestHealthAndNotFound(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, stdhttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, stdhttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "disabled", dig(t, body, "dependencies", "postgres"))

	status, body = srv.do(t, stdhttp.MethodGet, "/api/unknown", "", nil)
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", dig(t, body, "error", "code"))
}

func TestRegisterRejectsPasswordBeyondBcryptLimit(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, stdhttp.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": strings.Repeat("p", 80), "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", dig(t, body, "error", "code"))
	assert.Contains(t, dig(t, body, "error", "details"), "password")
}

func TestErrorMetricsKeyedByRoute(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 500; i++ {
		status, _ := srv.do(t, stdhttp.MethodGet, fmt.Sprintf("/api/dashboard/x%d", i), "", nil)
		require.Equal(t, stdhttp.StatusUnauthorized, status)
		status, _ = srv.do(t, stdhttp.MethodGet, fmt.Sprintf("/missing/%d", i), "", nil)
		require.Equal(t, stdhttp.StatusNotFound, status)
	}

	snapshot := srv.metrics.Snapshot()
	assert.LessOrEqual(t, len(snapshot.Errors), 4)
	assert.LessOrEqual(t, len(snapshot.Requests), 4)
	for key := range snapshot.Errors {
		assert.NotContains(t, key, "/x1", "error keys must not embed request paths")
		assert.NotContains(t, key, "/missing/", "error keys must not embed request paths")
	}
}
