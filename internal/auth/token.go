package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mindboost/academy-auth/internal/domain"
)

const (
	defaultAccessTTL  = 7 * 24 * time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour

	refreshTokenType = "refresh"
)

// TokenConfig is the explicit configuration of a TokenService.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues and verifies HS256 signed bearer tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService builds a service. It fails with ErrMissingSecret when the secret is empty.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}

	s := &TokenService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// AccessTTL returns the default access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// accessClaims is the wire payload of an access token. Field names are
// consumed by the SPA and must not change.
type accessClaims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"userId"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Issue signs an access token for the identity using the configured TTL.
func (s *TokenService) Issue(identity domain.Identity) (string, domain.Identity, error) {
	return s.IssueWithTTL(identity, s.accessTTL)
}

// IssueWithTTL signs an access token valid for ttl. IssuedAt and ExpiresAt on
// the input are ignored; the returned identity carries the embedded values.
func (s *TokenService) IssueWithTTL(identity domain.Identity, ttl time.Duration) (string, domain.Identity, error) {
	if identity.UserID == "" || identity.Email == "" {
		return "", domain.Identity{}, errors.New("userId and email are required")
	}
	if !identity.Role.Valid() {
		return "", domain.Identity{}, errors.New("role is not a known role")
	}
	if ttl <= 0 {
		return "", domain.Identity{}, errors.New("ttl must be positive")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := &accessClaims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Identity{}, err
	}

	identity.IssuedAt = issuedAt
	identity.ExpiresAt = expiresAt
	return signed, identity, nil
}

// Verify checks the signature and expiry of an access token and returns its identity.
// Every failure satisfies errors.Is(err, ErrInvalidToken).
func (s *TokenService) Verify(tokenStr string) (domain.Identity, error) {
	claims := &accessClaims{}
	if _, err := s.parser.ParseWithClaims(tokenStr, claims, s.keyFunc); err != nil {
		return domain.Identity{}, classify(err)
	}
	if claims.UserID == "" || claims.Email == "" || !claims.Role.Valid() || claims.IssuedAt == nil {
		return domain.Identity{}, &TokenError{Kind: KindMalformed, Err: errors.New("incomplete claims")}
	}

	return domain.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}, nil
}

// IssueRefresh signs a long-lived token that carries only the user id and a
// unique token id used to track the refresh session.
func (s *TokenService) IssueRefresh(userID string) (string, domain.RefreshIdentity, error) {
	if userID == "" {
		return "", domain.RefreshIdentity{}, errors.New("userId is required")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	ref := domain.RefreshIdentity{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.refreshTTL),
	}

	claims := &refreshClaims{
		UserID: userID,
		Type:   refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ref.TokenID,
			IssuedAt:  jwt.NewNumericDate(ref.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(ref.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.RefreshIdentity{}, err
	}
	return signed, ref, nil
}

// VerifyRefresh validates a refresh token. Access tokens are rejected.
func (s *TokenService) VerifyRefresh(tokenStr string) (domain.RefreshIdentity, error) {
	claims := &refreshClaims{}
	if _, err := s.parser.ParseWithClaims(tokenStr, claims, s.keyFunc); err != nil {
		return domain.RefreshIdentity{}, classify(err)
	}
	if claims.Type != refreshTokenType || claims.UserID == "" || claims.ID == "" || claims.IssuedAt == nil {
		return domain.RefreshIdentity{}, &TokenError{Kind: KindMalformed, Err: errors.New("not a refresh token")}
	}

	return domain.RefreshIdentity{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}, nil
}

func (s *TokenService) keyFunc(_ *jwt.Token) (interface{}, error) {
	return s.secret, nil
}

func classify(err error) error {
	kind := KindMalformed
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = KindExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		kind = KindTampered
	}
	return &TokenError{Kind: kind, Err: err}
}
