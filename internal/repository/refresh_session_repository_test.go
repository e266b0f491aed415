package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRefreshSessionContract(t *testing.T, repo RefreshSessionRepository) {
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "jti-1", "user-1", time.Hour))
	require.NoError(t, repo.Save(ctx, "jti-2", "user-1", time.Hour))
	require.NoError(t, repo.Save(ctx, "jti-3", "user-2", time.Hour))

	owner, err := repo.Consume(ctx, "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)

	_, err = repo.Consume(ctx, "jti-1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "a session can only be consumed once")

	require.NoError(t, repo.Revoke(ctx, "jti-unknown"))

	require.NoError(t, repo.RevokeAllForUser(ctx, "user-1"))
	_, err = repo.Consume(ctx, "jti-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	owner, err = repo.Consume(ctx, "jti-3")
	require.NoError(t, err)
	assert.Equal(t, "user-2", owner)

	require.NoError(t, repo.Save(ctx, "jti-4", "user-2", time.Hour))
	require.NoError(t, repo.Revoke(ctx, "jti-4"))
	_, err = repo.Consume(ctx, "jti-4")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryRefreshSessionRepository(t *testing.T) {
	runRefreshSessionContract(t, NewMemoryRefreshSessionRepository())
}

func TestMemoryRefreshSessionRepository_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &memoryRefreshSessionRepository{
		sessions: make(map[string]memorySession),
		now:      func() time.Time { return now },
	}
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "jti", "user", time.Minute))
	now = now.Add(time.Minute)

	_, err := repo.Consume(ctx, "jti")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
