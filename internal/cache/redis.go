package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/miorah/storefront/internal/domain"
)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// Jitter spreads expirations so a burst of logins does not refill
	// the cache all at once.
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, cacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
