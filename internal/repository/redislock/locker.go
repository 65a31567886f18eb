// Package redislock provides a Redis-backed lock so that several API
// instances serialize bill generation for the same farmer and month.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultPrefix = "dairy:lock:"
	retryInterval = 50 * time.Millisecond
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Locker implements billing.Locker with SET NX PX.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// Connect dials Redis and returns a Locker using it.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, cfg.TTL, logger), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, prefix: defaultPrefix, ttl: ttl, logger: logger.Named("repo.redislock")}
}

// Lock polls until the key is acquired or ctx is done. While held, the
// expiry is renewed every third of the TTL, so the lock only lapses when
// its holder dies or loses Redis for longer than the TTL.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(key, redisKey, token, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			// The caller's context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := unlockScript.Run(ctx, l.client, []string{redisKey}, token).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

func (l *Locker) keepAlive(key, redisKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extendScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			l.logger.Warn("failed to renew lock", zap.String("key", key), zap.Error(err))
			continue
		}
		if n == 0 {
			l.logger.Error("lock expired while held", zap.String("key", key))
			return
		}
	}
}

// Close closes the Redis client.
func (l *Locker) Close() error {
	return l.client.Close()
}
