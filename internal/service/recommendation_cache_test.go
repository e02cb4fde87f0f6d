package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"care-match/internal/domain"
)

func sampleResults() []domain.CompatibilityResult {
	return []domain.CompatibilityResult{
		{PatientID: "p1", CaregiverID: "c1", Score: 91.5, Grade: domain.GradeAPlus},
		{PatientID: "p1", CaregiverID: "c2", Score: 70, Grade: domain.GradeB},
	}
}

func TestMemoryRecommendationCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryRecommendationCache(time.Minute).(*memoryRecommendationCache)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, ok, _ := cache.Get(ctx, "p1", 5); ok {
		t.Fatalf("expected miss on empty cache")
	}
	if err := cache.Set(ctx, "p1", 5, sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := cache.Get(ctx, "p1", 5)
	if err != nil || !ok || len(got) != 2 {
		t.Fatalf("expected hit with 2 results, got %v %v %d", err, ok, len(got))
	}
	if _, ok, _ := cache.Get(ctx, "p1", 3); ok {
		t.Fatalf("different limit must miss")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "p1", 5); ok {
		t.Fatalf("expected expired entry to miss")
	}

	_ = cache.Set(ctx, "p1", 5, sampleResults())
	_ = cache.Set(ctx, "p1", 10, sampleResults())
	if err := cache.Invalidate(ctx, "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, limit := range []int{5, 10} {
		if _, ok, _ := cache.Get(ctx, "p1", limit); ok {
			t.Fatalf("limit %d: expected miss after invalidate", limit)
		}
	}
}

func TestMemoryRecommendationCacheDisabled(t *testing.T) {
	cache := NewMemoryRecommendationCache(0)
	if _, ok := cache.(NoopRecommendationCache); !ok {
		t.Fatalf("expected noop cache for zero ttl, got %T", cache)
	}
}

type mockRedisHash struct {
	data    map[string]map[string]string
	expires map[string]time.Duration
	deleted []string
	err     error
}

func newMockRedisHash() *mockRedisHash {
	return &mockRedisHash{data: make(map[string]map[string]string), expires: make(map[string]time.Duration)}
}

func (m *mockRedisHash) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.data[key][field]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisHash) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	if m.data[key] == nil {
		m.data[key] = make(map[string]string)
	}
	for i := 0; i+1 < len(values); i += 2 {
		field, _ := values[i].(string)
		switch v := values[i+1].(type) {
		case []byte:
			m.data[key][field] = string(v)
		case string:
			m.data[key][field] = v
		}
	}
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (m *mockRedisHash) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	m.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (m *mockRedisHash) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestRedisRecommendationCache(t *testing.T) {
	ctx := context.Background()

	t.Run("nil client disables cache", func(t *testing.T) {
		if c := NewRedisRecommendationCache(nil, time.Minute); c != nil {
			t.Fatalf("expected nil cache without client")
		}
	})

	t.Run("set get invalidate", func(t *testing.T) {
		mock := newMockRedisHash()
		cache := &redisRecommendationCache{client: mock, ttl: 5 * time.Minute, prefix: "match:recs:"}

		if _, ok, err := cache.Get(ctx, "p1", 5); ok || err != nil {
			t.Fatalf("expected clean miss, got %v %v", ok, err)
		}
		if err := cache.Set(ctx, " p1 ", 5, sampleResults()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock.expires["match:recs:p1"] != 5*time.Minute {
			t.Fatalf("expected ttl on hash key, got %v", mock.expires)
		}
		var stored []domain.CompatibilityResult
		if err := json.Unmarshal([]byte(mock.data["match:recs:p1"]["5"]), &stored); err != nil {
			t.Fatalf("expected JSON payload, got %v", err)
		}

		got, ok, err := cache.Get(ctx, "p1", 5)
		if err != nil || !ok {
			t.Fatalf("expected hit, got %v %v", ok, err)
		}
		if len(got) != 2 || got[0].CaregiverID != "c1" || got[0].Score != 91.5 {
			t.Fatalf("unexpected cached results %+v", got)
		}

		if err := cache.Invalidate(ctx, "p1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mock.deleted) != 1 || mock.deleted[0] != "match:recs:p1" {
			t.Fatalf("expected hash delete, got %v", mock.deleted)
		}
	})

	t.Run("errors surface", func(t *testing.T) {
		mock := newMockRedisHash()
		mock.err = errors.New("redis down")
		cache := &redisRecommendationCache{client: mock, ttl: time.Minute, prefix: "match:recs:"}
		if _, _, err := cache.Get(ctx, "p1", 5); err == nil {
			t.Fatalf("expected get error")
		}
		if err := cache.Set(ctx, "p1", 5, sampleResults()); err == nil {
			t.Fatalf("expected set error")
		}
	})
}
