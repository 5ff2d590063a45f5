package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	redisv9 "github.com/redis/go-redis/v9"
)

// VectorCache stores embeddings by key. A miss is (nil, false, nil).
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Key scopes a text to one embedding space.
func Key(version, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "faq:embedding:" + version + ":" + hex.EncodeToString(sum[:])
}

type RedisVectorCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisVectorCache(client *redisv9.Client, ttl time.Duration) *RedisVectorCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisVectorCache{client: client, ttl: ttl}
}

func (c *RedisVectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	return vec, true, nil
}

func (c *RedisVectorCache) Set(ctx context.Context, key string, vec []float32) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

// MemoryVectorCache keeps embeddings in process; entries expire after ttl.
type MemoryVectorCache struct {
	items *gocache.Cache
}

func NewMemoryVectorCache(ttl time.Duration) *MemoryVectorCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryVectorCache{items: gocache.New(ttl, 10*time.Minute)}
}

func (c *MemoryVectorCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	if x, found := c.items.Get(key); found {
		return clone(x.([]float32)), true, nil
	}
	return nil, false, nil
}

func (c *MemoryVectorCache) Set(_ context.Context, key string, vec []float32) error {
	c.items.Set(key, clone(vec), gocache.DefaultExpiration)
	return nil
}

func (c *MemoryVectorCache) Len() int {
	return c.items.ItemCount()
}

func clone(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
