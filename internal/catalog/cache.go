package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CachedClient puts a redis menu cache in front of another Client. Cache
// faults are logged and bypassed; availability answers always have an origin
// behind them.
type CachedClient struct {
	inner   Client
	client  *redis.Client
	baseTTL time.Duration
}

func NewCachedClient(inner Client, client *redis.Client) *CachedClient {
	return &CachedClient{
		inner:   inner,
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

func (c *CachedClient) FetchMenuItems(ctx context.Context, identity domain.Identity, restaurantID string) ([]MenuItem, error) {
	items, err := c.get(ctx, restaurantID)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("menu cache get error: %v", err)
	}

	items, err = c.inner.FetchMenuItems(ctx, identity, restaurantID)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, restaurantID, items); err != nil {
		log.Printf("menu cache set error: %v", err)
	}
	return items, nil
}

func (c *CachedClient) get(ctx context.Context, restaurantID string) ([]MenuItem, error) {
	data, err := c.client.Get(ctx, cacheKey(restaurantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []MenuItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal menu failed: %w", err)
	}
	return items, nil
}

func (c *CachedClient) set(ctx context.Context, restaurantID string, items []MenuItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal menu failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(30)) * time.Second
	if err := c.client.Set(ctx, cacheKey(restaurantID), data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(restaurantID string) string {
	return fmt.Sprintf("menu:%s", restaurantID)
}
