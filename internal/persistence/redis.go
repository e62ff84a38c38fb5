package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/resolution-engine/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// PassLock is a best-effort cross-instance lock: SET NX with a TTL so a
// crashed holder cannot wedge sweeping forever.
type PassLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewPassLock builds a lock over the wrapped client. Returns nil when
// Redis is not configured, which callers treat as "no cross-instance lock".
func (r *Redis) NewPassLock(key string, ttl time.Duration) *PassLock {
	if r == nil || r.Client == nil {
		return nil
	}
	return &PassLock{client: r.Client, key: key, ttl: ttl}
}

// Acquire attempts to take the lock.
func (l *PassLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
}

// Release drops the lock. Best effort: an expired lock is already gone.
func (l *PassLock) Release(ctx context.Context) {
	_ = l.client.Del(ctx, l.key).Err()
}
