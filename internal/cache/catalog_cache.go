package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/carcompare/compare-webserver/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	brandItemsKeyPrefix = "catalog:brand_items:"
	generationKey       = "catalog:generation"
)

// RedisCatalogCache keeps the rendered brand dropdown in Redis so the catalog
// collections are only aggregated again after a write invalidates it. Entries
// live under the generation they were read at; Invalidate increments the
// generation, so a write carrying an older generation is never read back.
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to addr and pings it. Callers treat an error as "run without a cache".
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not ping redis at %s: %w", addr, err)
	}

	return client, nil
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
	}
}

func brandItemsKey(generation int64) string {
	return fmt.Sprintf("%s%d", brandItemsKeyPrefix, generation)
}

func (c *RedisCatalogCache) generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("could not read %s from redis: %w", generationKey, err)
	}
	return generation, nil
}

// GetBrandItems returns the dropdown cached for the current generation, that
// generation, and whether an entry was present
func (c *RedisCatalogCache) GetBrandItems(ctx context.Context) ([]models.BrandItemModel, int64, bool, error) {
	generation, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	key := brandItemsKey(generation)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("could not read %s from redis: %w", key, err)
	}

	var items []models.BrandItemModel
	if err := json.Unmarshal(raw, &items); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the next Set
		return nil, generation, false, nil
	}
	return items, generation, true, nil
}

func (c *RedisCatalogCache) SetBrandItems(ctx context.Context, generation int64, items []models.BrandItemModel) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("could not encode brand items: %w", err)
	}

	key := brandItemsKey(generation)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("could not write %s to redis: %w", key, err)
	}
	return nil
}

// Invalidate moves to a new generation and drops the entry of the old one
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	generation, err := c.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return fmt.Errorf("could not increment %s in redis: %w", generationKey, err)
	}

	if err := c.client.Del(ctx, brandItemsKey(generation-1)).Err(); err != nil {
		return fmt.Errorf("could not delete %s from redis: %w", brandItemsKey(generation-1), err)
	}
	return nil
}
