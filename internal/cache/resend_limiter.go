// Package cache holds the redis-backed helpers of the service.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const resendKeyPrefix = "verify:resend:"

// ResendLimiter decides whether a verification email may be resent now.
type ResendLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
}

// RedisResendLimiter allows one resend per email per cooldown window.
type RedisResendLimiter struct {
	rdb      redis.Cmdable
	cooldown time.Duration
}

func NewRedisResendLimiter(rdb redis.Cmdable, cooldown time.Duration) *RedisResendLimiter {
	return &RedisResendLimiter{rdb: rdb, cooldown: cooldown}
}

func ResendKey(email string) string {
	return resendKeyPrefix + strings.ToLower(email)
}

// Allow claims the cooldown slot for email. It returns false while a previous
// claim is still alive.
func (l *RedisResendLimiter) Allow(ctx context.Context, email string) (bool, error) {
	if l.cooldown <= 0 {
		return true, nil
	}
	ok, err := l.rdb.SetNX(ctx, ResendKey(email), 1, l.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("resend limiter: %w", err)
	}
	return ok, nil
}
