// internal/cache/recommendation_cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warestock/replenishd/internal/config"
	"github.com/warestock/replenishd/internal/domain"
)

const (
	recommendationKeyPrefix = "replenishment:recommendations"
	recommendationScanBatch = 100
)

// cachedRecommendations is the stored payload: the page plus the pre-page
// total the read API reports.
type cachedRecommendations struct {
	Items []domain.Recommendation `json:"items"`
	Total int                     `json:"total"`
}

// RecommendationCache fronts latest-recommendation reads. Entries are
// invalidated wholesale when a run commits.
type RecommendationCache interface {
	Get(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, bool, error)
	Set(ctx context.Context, filter domain.RecommendationFilter, recs []domain.Recommendation, total int) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRecommendationCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) Get(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, bool, error) {
	key := buildRecommendationKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get failed: %w", err)
	}

	var cached cachedRecommendations
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, 0, false, fmt.Errorf("decode recommendation cache: %w", err)
	}

	return cached.Items, cached.Total, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, filter domain.RecommendationFilter, recs []domain.Recommendation, total int) error {
	key := buildRecommendationKey(filter)
	payload, err := json.Marshal(cachedRecommendations{Items: recs, Total: total})
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, recommendationKeyPrefix, recommendationScanBatch)
}

func (n *noopRecommendationCache) Get(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, int, bool, error) {
	return nil, 0, false, nil
}

func (n *noopRecommendationCache) Set(ctx context.Context, filter domain.RecommendationFilter, recs []domain.Recommendation, total int) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildRecommendationKey(filter domain.RecommendationFilter) string {
	return fmt.Sprintf("%s:%s", recommendationKeyPrefix, recommendationFilterHash(filter))
}

func recommendationFilterHash(filter domain.RecommendationFilter) string {
	parts := []string{}

	if len(filter.WarehouseIDs) > 0 {
		ids := make([]string, 0, len(filter.WarehouseIDs))
		for _, w := range filter.WarehouseIDs {
			ids = append(ids, string(w))
		}
		sort.Strings(ids)
		parts = append(parts, "warehouses="+strings.Join(ids, ","))
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		parts = append(parts, "statuses="+strings.Join(statuses, ","))
	}

	if filter.MaxPriority > 0 {
		parts = append(parts, fmt.Sprintf("max_priority=%d", filter.MaxPriority))
	}
	if filter.SortBy != "" {
		parts = append(parts, "sort_by="+filter.SortBy)
	}
	if filter.SortDir != "" {
		parts = append(parts, "sort_dir="+filter.SortDir)
	}
	if filter.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit=%d", filter.Limit))
	}
	if filter.Offset > 0 {
		parts = append(parts, fmt.Sprintf("offset=%d", filter.Offset))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
