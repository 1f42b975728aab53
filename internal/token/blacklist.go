package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records tokens that must no longer be accepted (logout,
// refresh rotation).
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type redisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist stores revocations in redis, keyed by token digest
// so raw bearer tokens never land in the keyspace.
func NewRedisBlacklist(client *redis.Client) Blacklist {
	return &redisBlacklist{client: client}
}

func (b *redisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < time.Hour {
		ttl = time.Hour
	}
	if err := b.client.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (b *redisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.client.Get(ctx, blacklistKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	return true, nil
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:revoked:" + hex.EncodeToString(sum[:])
}

// InMemoryBlacklist is the test implementation. Entries never expire.
type InMemoryBlacklist struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

func NewInMemoryBlacklist() *InMemoryBlacklist {
	return &InMemoryBlacklist{revoked: make(map[string]struct{})}
}

func (b *InMemoryBlacklist) Revoke(_ context.Context, token string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = struct{}{}
	return nil
}

func (b *InMemoryBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.revoked[token]
	return ok, nil
}
