package auth

import "errors"

var (
	// ErrInvalidToken is the single externally visible verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret means the token service was built without a signing key.
	ErrMissingSecret = errors.New("token signing secret is not configured")
)

// TokenErrorKind tags why verification failed. It is meant for logs and
// metrics only and must not reach HTTP responses.
type TokenErrorKind int

const (
	KindMalformed TokenErrorKind = iota
	KindTampered
	KindExpired
)

func (k TokenErrorKind) String() string {
	switch k {
	case KindTampered:
		return "tampered"
	case KindExpired:
		return "expired"
	default:
		return "malformed"
	}
}

// TokenError carries the internal failure kind. errors.Is(err, ErrInvalidToken)
// holds for every TokenError.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	return ErrInvalidToken.Error() + ": " + e.Kind.String()
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

func (e *TokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

// KindOf extracts the failure kind from err, defaulting to KindMalformed.
func KindOf(err error) TokenErrorKind {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Kind
	}
	return KindMalformed
}
