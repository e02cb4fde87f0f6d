package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"care-match/internal/domain"
)

// RecommendationCache guarda rankings recientes por paciente y limite.
type RecommendationCache interface {
	Get(ctx context.Context, patientID string, limit int) ([]domain.CompatibilityResult, bool, error)
	Set(ctx context.Context, patientID string, limit int, results []domain.CompatibilityResult) error
	Invalidate(ctx context.Context, patientID string) error
}

// NoopRecommendationCache nunca guarda nada.
type NoopRecommendationCache struct{}

func (NoopRecommendationCache) Get(context.Context, string, int) ([]domain.CompatibilityResult, bool, error) {
	return nil, false, nil
}

func (NoopRecommendationCache) Set(context.Context, string, int, []domain.CompatibilityResult) error {
	return nil
}

func (NoopRecommendationCache) Invalidate(context.Context, string) error { return nil }

type memoryRecommendationEntry struct {
	results []domain.CompatibilityResult
	expires time.Time
}

type memoryRecommendationCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]map[int]memoryRecommendationEntry
}

func NewMemoryRecommendationCache(ttl time.Duration) RecommendationCache {
	if ttl <= 0 {
		return NoopRecommendationCache{}
	}
	return &memoryRecommendationCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]map[int]memoryRecommendationEntry),
	}
}

func (c *memoryRecommendationCache) Get(_ context.Context, patientID string, limit int) ([]domain.CompatibilityResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byLimit, ok := c.items[patientID]
	if !ok {
		return nil, false, nil
	}
	entry, ok := byLimit[limit]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expires) {
		delete(byLimit, limit)
		return nil, false, nil
	}
	out := make([]domain.CompatibilityResult, len(entry.results))
	copy(out, entry.results)
	return out, true, nil
}

func (c *memoryRecommendationCache) Set(_ context.Context, patientID string, limit int, results []domain.CompatibilityResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byLimit, ok := c.items[patientID]
	if !ok {
		byLimit = make(map[int]memoryRecommendationEntry)
		c.items[patientID] = byLimit
	}
	stored := make([]domain.CompatibilityResult, len(results))
	copy(stored, results)
	byLimit[limit] = memoryRecommendationEntry{results: stored, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *memoryRecommendationCache) Invalidate(_ context.Context, patientID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, patientID)
	return nil
}

// redisHashClient es el subconjunto de go-redis que usa el cache.
type redisHashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisRecommendationCache guarda un hash por paciente: campo = limite, valor = JSON.
// Invalidar borra el hash completo.
type redisRecommendationCache struct {
	client redisHashClient
	ttl    time.Duration
	prefix string
}

func NewRedisRecommendationCache(client *redis.Client, ttl time.Duration) RecommendationCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &redisRecommendationCache{
		client: client,
		ttl:    ttl,
		prefix: "match:recs:",
	}
}

func (c *redisRecommendationCache) key(patientID string) string {
	return c.prefix + strings.TrimSpace(patientID)
}

func (c *redisRecommendationCache) Get(ctx context.Context, patientID string, limit int) ([]domain.CompatibilityResult, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(patientID), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var results []domain.CompatibilityResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, patientID string, limit int, results []domain.CompatibilityResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}
	key := c.key(patientID)
	if err := c.client.HSet(ctx, key, strconv.Itoa(limit), payload).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

func (c *redisRecommendationCache) Invalidate(ctx context.Context, patientID string) error {
	return c.client.Del(ctx, c.key(patientID)).Err()
}
