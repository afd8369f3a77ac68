package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptKeyPrefix = "auth:login-failures:"

// LoginAttemptRepository counts failed logins per username within a sliding lockout window.
type LoginAttemptRepository interface {
	Failures(ctx context.Context, username string) (int64, error)
	RecordFailure(ctx context.Context, username string, window time.Duration) (int64, error)
	Reset(ctx context.Context, username string) error
}

type loginAttemptRepository struct {
	client *redis.Client
}

// NewLoginAttemptRepository returns a Redis-backed implementation.
func NewLoginAttemptRepository(client *redis.Client) LoginAttemptRepository {
	return &loginAttemptRepository{client: client}
}

func (r *loginAttemptRepository) Failures(ctx context.Context, username string) (int64, error) {
	count, err := r.client.Get(ctx, loginAttemptKey(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// RecordFailure increments the counter; the first failure starts the window.
func (r *loginAttemptRepository) RecordFailure(ctx context.Context, username string, window time.Duration) (int64, error) {
	key := loginAttemptKey(username)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *loginAttemptRepository) Reset(ctx context.Context, username string) error {
	return r.client.Del(ctx, loginAttemptKey(username)).Err()
}

func loginAttemptKey(username string) string {
	return loginAttemptKeyPrefix + strings.ToLower(username)
}
