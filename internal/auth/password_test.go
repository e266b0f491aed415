package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, ComparePassword(hash, "secret1"))
	assert.ErrorIs(t, ComparePassword(hash, "secret2"), ErrPasswordMismatch)
	assert.Error(t, ComparePassword("not-a-hash", "secret1"))

	again, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}

func TestHashPassword_OutOfRangeCostUsesDefault(t *testing.T) {
	hash, err := HashPassword("secret1", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestNewDummyHash_MatchesHashPasswordCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"configured cost", bcrypt.MinCost, bcrypt.MinCost},
		{"zero cost", 0, bcrypt.DefaultCost},
		{"above max", bcrypt.MaxCost + 1, bcrypt.DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := newDummyHash(tt.cost)
			require.NotEmpty(t, hash)
			cost, err := bcrypt.Cost(hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cost)
			assert.ErrorIs(t, ComparePassword(string(hash), "secret1"), ErrPasswordMismatch)
		})
	}
}
