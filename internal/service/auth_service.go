package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindboost/academy-auth/internal/auth"
	"github.com/mindboost/academy-auth/internal/config"
	"github.com/mindboost/academy-auth/internal/domain"
	"github.com/mindboost/academy-auth/internal/events"
	"github.com/mindboost/academy-auth/internal/repository"
	apperrors "github.com/mindboost/academy-auth/pkg/util/errorutil"
)

const (
	minPasswordLength = 6
	// bcrypt refuses inputs longer than 72 bytes.
	maxPasswordLength = 72
)

var (
	ErrEmailTaken         = apperrors.NewConflict("email already registered", nil)
	ErrInvalidCredentials = apperrors.NewInvalidCredentials()
	ErrSessionRevoked     = apperrors.NewUnauthenticated()
	ErrUserNotFound       = apperrors.NewNotFound("user", nil)
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthResult is returned by every flow that signs a user in.
type AuthResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// AuthService coordinates registration, login and session flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.RefreshSessionRepository
	tokens     *auth.TokenService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.RefreshSessionRepository
	Tokens      *auth.TokenService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a LEARNER account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         domain.DefaultRole,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, actorOf(user), nil)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Login verifies credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.BurnPasswordCheck(password, s.bcryptCost)
			s.publish(ctx, events.EventLoginFailed, events.Actor{}, events.LoginFailedPayload{Reason: "unknown_email"})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable", zap.String("user_id", user.ID), zap.Error(err))
		}
		s.publish(ctx, events.EventLoginFailed, actorOf(user), events.LoginFailedPayload{Reason: "bad_password"})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventLoginSucceeded, actorOf(user), nil)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented session is consumed and a new
// pair is issued with the user's current role.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ref, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Info("refresh rejected", zap.String("reason", auth.KindOf(err).String()))
		return nil, ErrSessionRevoked
	}

	owner, err := s.sessions.Consume(ctx, ref.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Info("refresh rejected", zap.String("reason", "session_revoked"), zap.String("user_id", ref.UserID))
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("consume refresh session: %w", err)
	}
	if owner != ref.UserID {
		return nil, ErrSessionRevoked
	}

	user, err := s.users.GetByID(ctx, ref.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTokenRefreshed, actorOf(user), nil)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout revokes the refresh session. Access tokens stay valid until they
// expire; the client is expected to discard them.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ref, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return ErrSessionRevoked
	}
	if err := s.sessions.Revoke(ctx, ref.TokenID); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	s.publish(ctx, events.EventLoggedOut, events.Actor{UserID: ref.UserID}, nil)
	return nil
}

// Profile loads the caller's credential record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash and
// signs out every refresh session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if msg := checkPasswordLength(newPassword); msg != "" {
		return apperrors.NewValidationError("invalid password", map[string]any{"newPassword": msg})
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke refresh sessions: %w", err)
	}

	s.publish(ctx, events.EventPasswordChanged, actorOf(user), nil)
	return nil
}

// AssignRole changes a user's role. Tokens already issued keep their old role
// until they expire; the next issued token carries the new one.
func (s *AuthService) AssignRole(ctx context.Context, actor domain.Identity, targetUserID, rawRole string) (*domain.User, error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": "must be one of LEARNER, TEACHER, PREP_ADMIN, SUPER_ADMIN"})
	}

	user, err := s.Profile(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	oldRole := user.Role
	if oldRole == role {
		return user, nil
	}

	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.publish(ctx, events.EventRoleAssigned, events.Actor{UserID: actor.UserID, Role: actor.Role}, events.RoleAssignedPayload{
		TargetUserID: user.ID,
		OldRole:      oldRole,
		NewRole:      role,
	})
	return user, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	access, identity, err := s.tokens.Issue(domain.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, ref, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.sessions.Save(ctx, ref.TokenID, user.ID, ref.ExpiresAt.Sub(ref.IssuedAt)); err != nil {
		return domain.TokenPair{}, fmt.Errorf("save refresh session: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  identity.ExpiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: ref.ExpiresAt,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, actor events.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(in RegisterInput) error {
	details := map[string]any{}
	if in.FirstName == "" {
		details["firstName"] = "required"
	}
	if in.LastName == "" {
		details["lastName"] = "required"
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		details["email"] = "must be a valid email address"
	}
	if msg := checkPasswordLength(in.Password); msg != "" {
		details["password"] = msg
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration", details)
	}
	return nil
}

func checkPasswordLength(password string) string {
	switch {
	case len(password) < minPasswordLength:
		return fmt.Sprintf("must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return fmt.Sprintf("must be at most %d bytes", maxPasswordLength)
	}
	return ""
}
