package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "auth:refresh:"

// RefreshSessionRepository tracks live refresh tokens by token id.
type RefreshSessionRepository interface {
	// Save records a live session that expires after ttl.
	Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	// Consume atomically removes the session and returns its owner.
	Consume(ctx context.Context, tokenID string) (string, error)
	// Revoke removes a session. Unknown ids are not an error.
	Revoke(ctx context.Context, tokenID string) error
	// RevokeAllForUser removes every session owned by userID.
	RevokeAllForUser(ctx context.Context, userID string) error
}

type redisRefreshSessionRepository struct {
	client *redis.Client
}

// NewRedisRefreshSessionRepository returns a Redis-backed session store.
func NewRedisRefreshSessionRepository(client *redis.Client) RefreshSessionRepository {
	return &redisRefreshSessionRepository{client: client}
}

func sessionKey(tokenID string) string {
	return refreshKeyPrefix + tokenID
}

func userSessionsKey(userID string) string {
	return refreshKeyPrefix + "user:" + userID
}

func (r *redisRefreshSessionRepository) Save(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(tokenID), userID, ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), tokenID)
	pipe.Expire(ctx, userSessionsKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (r *redisRefreshSessionRepository) Consume(ctx context.Context, tokenID string) (string, error) {
	userID, err := r.client.GetDel(ctx, sessionKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume refresh session: %w", err)
	}
	if err := r.client.SRem(ctx, userSessionsKey(userID), tokenID).Err(); err != nil {
		return "", fmt.Errorf("consume refresh session: %w", err)
	}
	return userID, nil
}

func (r *redisRefreshSessionRepository) Revoke(ctx context.Context, tokenID string) error {
	if _, err := r.Consume(ctx, tokenID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

func (r *redisRefreshSessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	tokenIDs, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list refresh sessions: %w", err)
	}

	keys := make([]string, 0, len(tokenIDs)+1)
	for _, id := range tokenIDs {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh sessions: %w", err)
	}
	return nil
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

// memoryRefreshSessionRepository is the in-process fallback when Redis is not configured.
type memoryRefreshSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemoryRefreshSessionRepository returns an empty in-memory session store.
func NewMemoryRefreshSessionRepository() RefreshSessionRepository {
	return &memoryRefreshSessionRepository{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (r *memoryRefreshSessionRepository) Save(_ context.Context, tokenID, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[tokenID] = memorySession{userID: userID, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *memoryRefreshSessionRepository) Consume(_ context.Context, tokenID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[tokenID]
	if !ok {
		return "", ErrSessionNotFound
	}
	delete(r.sessions, tokenID)
	if !r.now().Before(session.expiresAt) {
		return "", ErrSessionNotFound
	}
	return session.userID, nil
}

func (r *memoryRefreshSessionRepository) Revoke(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenID)
	return nil
}

func (r *memoryRefreshSessionRepository) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.userID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}
