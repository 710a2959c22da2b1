package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylistRepo implements domain.TokenDenylist on Redis. Logout writes
// the token id here with a TTL equal to the token's remaining lifetime, so
// the entry expires exactly when the token would have anyway.
type RedisDenylistRepo struct {
	client *redis.Client
}

func NewRedisDenylistRepo(client *redis.Client) *RedisDenylistRepo {
	return &RedisDenylistRepo{client: client}
}

func denyKey(jti string) string {
	return fmt.Sprintf("auth:denylist:%s", jti)
}

// Add marks a token id as revoked for the given duration.
func (r *RedisDenylistRepo) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to revoke.
		return nil
	}
	if err := r.client.Set(ctx, denyKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylisting token: %w", err)
	}
	return nil
}

// Contains reports whether a token id has been revoked.
func (r *RedisDenylistRepo) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("checking token denylist: %w", err)
	}
	return n > 0, nil
}
