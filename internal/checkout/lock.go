package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/storefront-cart/internal/domain"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker serializes checkout submissions for one order across every
// device and storefront replica.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func lockKey(orderID string) string {
	return fmt.Sprintf("checkout:%s", orderID)
}

func (l *RedisLocker) Acquire(ctx context.Context, orderID string) (func(context.Context) error, error) {
	key := lockKey(orderID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w: %w", key, domain.ErrBackendUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire %s: %w", key, domain.ErrCheckoutInProgress)
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		return nil
	}
	return release, nil
}
