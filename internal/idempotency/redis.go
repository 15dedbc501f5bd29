// Package idempotency remembers which order a checkout Idempotency-Key produced.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/logger"
)

const (
	keyPrefix      = "idem:checkout:"
	pendingValue   = "pending"
	reservationTTL = 30 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store keeps key -> order id mappings in Redis with a TTL.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// Connect parses url, pings the server and returns the client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(client redis.Cmdable, ttl time.Duration, l *zap.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: logger.OrNop(l).Named("idempotency")}
}

func redisKey(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Reserve claims key within scope with a short-lived pending marker. When
// the key is already held it returns the bound order id, or "" while the
// holder's checkout is still running.
func (s *Store) Reserve(ctx context.Context, scope, key string) (string, bool, error) {
	rk := redisKey(scope, key)
	for range 2 {
		ok, err := s.client.SetNX(ctx, rk, pendingValue, reservationTTL).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}
		val, err := s.client.Get(ctx, rk).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return "", false, err
		}
		if val == pendingValue {
			return "", false, nil
		}
		return val, false, nil
	}
	return "", false, errors.New("idempotency key kept expiring")
}

// Remember binds key to orderID for the store's TTL, replacing the
// reservation.
func (s *Store) Remember(ctx context.Context, scope, key, orderID string) error {
	return s.client.Set(ctx, redisKey(scope, key), orderID, s.ttl).Err()
}

// Release deletes key only while it still holds the pending marker.
func (s *Store) Release(ctx context.Context, scope, key string) error {
	n, err := releaseScript.Run(ctx, s.client, []string{redisKey(scope, key)}, pendingValue).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Debug("idempotency key not pending", zap.String("scope", scope), zap.String("key", key))
	}
	return nil
}
