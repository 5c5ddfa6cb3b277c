package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshTokenDenylistKeyPrefix = "auth:refresh:denylist:"

// Denylist 记录在自然过期前被吊销的刷新令牌（按 jti）。
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisDenylist 将吊销记录写入 Redis，TTL 等于令牌剩余有效期。
type RedisDenylist struct {
	client redis.UniversalClient
}

// NewRedisDenylist 构造基于 Redis 的黑名单。
func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client}
}

// Revoke 写入吊销标记。
func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := d.client.Set(ctx, refreshTokenDenylistKeyPrefix+jti, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("revoke refresh token %s: %w", jti, err)
	}
	return nil
}

// IsRevoked 判断 jti 是否已被吊销。
func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, refreshTokenDenylistKeyPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("lookup refresh denylist: %w", err)
	}
}
