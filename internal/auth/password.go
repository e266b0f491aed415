package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a plaintext password does not match its hash.
var ErrPasswordMismatch = errors.New("password mismatch")

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), clampCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// BurnPasswordCheck performs a throwaway comparison so that unknown emails
// cost the same as wrong passwords.
func BurnPasswordCheck(plain string, cost int) {
	dummyOnce.Do(func() {
		dummyHash = newDummyHash(cost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

// newDummyHash must yield a real hash at the same cost HashPassword would use;
// a nil hash makes the comparison return immediately.
func newDummyHash(cost int) []byte {
	hashed, err := HashPassword("mindboost-placeholder", cost)
	if err != nil {
		panic(fmt.Sprintf("auth: building dummy password hash: %v", err))
	}
	return []byte(hashed)
}

func clampCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}
