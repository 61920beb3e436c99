package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/teamlane/teamlane/internal/config"
)

const keyLogin = "auth:login:%s"

// LoginLimiter throttles login attempts per client address to slow down
// credential stuffing. Disabled when no Redis address is configured.
type LoginLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewLoginLimiter(cfg config.Config) *LoginLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" || cfg.LoginRateLimit <= 0 || cfg.LoginRateBurst <= 0 {
		return &LoginLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &LoginLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(cfg.LoginRateLimit) / 60.0,
		burst:   cfg.LoginRateBurst,
	}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *LoginLimiter) Allow(ctx context.Context, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLogin, strings.TrimSpace(clientIP)), l.rate, l.burst)
}
