package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptRepo implements domain.AttemptTracker on Redis. The counter
// lives in a shared store so brute-force detection stays correct when the
// service is scaled horizontally; a process-local map would undercount.
type RedisAttemptRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAttemptRepo(client *redis.Client, ttl time.Duration) *RedisAttemptRepo {
	return &RedisAttemptRepo{client: client, ttl: ttl}
}

func attemptKey(addr string) string {
	return fmt.Sprintf("auth:failed:%s", addr)
}

// Increment bumps the failure counter for an address and resets its TTL
// window, returning the new count. INCR and EXPIRE run in one transactional
// pipeline so concurrent failures from the same address never lose updates.
func (r *RedisAttemptRepo) Increment(ctx context.Context, addr string) (int64, error) {
	key := attemptKey(addr)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incrementing failed-attempt counter: %w", err)
	}
	return incr.Val(), nil
}

// Clear removes the counter entirely. Called on the next successful login
// from the address, so a later failure starts counting from 1 again.
func (r *RedisAttemptRepo) Clear(ctx context.Context, addr string) error {
	if err := r.client.Del(ctx, attemptKey(addr)).Err(); err != nil {
		return fmt.Errorf("clearing failed-attempt counter: %w", err)
	}
	return nil
}
