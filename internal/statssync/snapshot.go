package statssync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// SnapshotCache persists the last good aggregate pair so a restart can
// show real figures before the first successful refresh.
type SnapshotCache interface {
	Store(ctx context.Context, stats models.AggregateStats, trends models.TrendDeltas) error
	Load(ctx context.Context) (models.AggregateStats, models.TrendDeltas, bool, error)
}

// MemoryCache keeps the snapshot in process memory. It is the default
// when Redis is disabled.
type MemoryCache struct {
	mu     sync.RWMutex
	stats  models.AggregateStats
	trends models.TrendDeltas
	set    bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Store(_ context.Context, stats models.AggregateStats, trends models.TrendDeltas) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = stats
	c.trends = trends
	c.set = true
	return nil
}

func (c *MemoryCache) Load(_ context.Context) (models.AggregateStats, models.TrendDeltas, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats, c.trends, c.set, nil
}

type snapshotDoc struct {
	Stats   models.AggregateStats `json:"stats"`
	Trends  models.TrendDeltas    `json:"trends"`
	SavedAt int64                 `json:"saved_at"`
}

// RedisCache stores the snapshot under a single key with a TTL, so stale
// figures age out rather than outliving the backend they came from.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache. A zero ttl keeps snapshots for 24h.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "cspmfeed:stats:lastgood"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Store(ctx context.Context, stats models.AggregateStats, trends models.TrendDeltas) error {
	doc := snapshotDoc{Stats: stats, Trends: trends, SavedAt: time.Now().Unix()}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal stats snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store stats snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Load(ctx context.Context) (models.AggregateStats, models.TrendDeltas, bool, error) {
	data, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return models.AggregateStats{}, models.TrendDeltas{}, false, nil
	}
	if err != nil {
		return models.AggregateStats{}, models.TrendDeltas{}, false, fmt.Errorf("load stats snapshot: %w", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return models.AggregateStats{}, models.TrendDeltas{}, false, fmt.Errorf("decode stats snapshot: %w", err)
	}

	return doc.Stats, doc.Trends, true, nil
}
