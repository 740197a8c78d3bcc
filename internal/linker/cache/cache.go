// Package cache stores suggestion lists and score reports in Redis. Keys
// embed the corpus snapshot id, so a rebuild makes earlier entries
// unreachable without an explicit flush.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/samherejoy-web/BTools-sub000/internal/content"
	"github.com/samherejoy-web/BTools-sub000/internal/engine"
	"github.com/samherejoy-web/BTools-sub000/internal/relevance/ranker"
	"github.com/samherejoy-web/BTools-sub000/pkg/metrics"
)

const keyPrefix = "linkengine:"

// Kinds of cached results, used in keys and metric labels.
const (
	KindSuggest = "suggest"
	KindScore   = "score"
)

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Cache is safe for concurrent use. Store failures degrade to recomputing.
type Cache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a Cache. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// SuggestKey identifies a suggestion request against one snapshot.
func SuggestKey(snapshotID string, source content.Item, existingLinks []string, params ranker.Params) string {
	links := slices.Clone(existingLinks)
	slices.Sort(links)
	return buildKey(KindSuggest, snapshotID, struct {
		Source content.Item  `json:"source"`
		Links  []string      `json:"links"`
		Params ranker.Params `json:"params"`
	}{source, slices.Compact(links), params})
}

// ScoreKey identifies a score request. Internal-link counting depends on the
// catalog, so the snapshot id is part of the key.
func ScoreKey(snapshotID string, item content.Item) string {
	return buildKey(KindScore, snapshotID, item)
}

// GetSuggestions returns the cached result for key or computes and stores it.
func (c *Cache) GetSuggestions(ctx context.Context, key string, compute func() (*engine.SuggestResult, error)) (*engine.SuggestResult, bool, error) {
	return getOrCompute(ctx, c, KindSuggest, key, compute)
}

// GetReport returns the cached report for key or computes and stores it.
func (c *Cache) GetReport(ctx context.Context, key string, compute func() (*content.ScoreReport, error)) (*content.ScoreReport, bool, error) {
	return getOrCompute(ctx, c, KindScore, key, compute)
}

// getOrCompute collapses concurrent misses on one key into a single
// computation.
func getOrCompute[T any](ctx context.Context, c *Cache, kind, key string, compute func() (*T, error)) (*T, bool, error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		c.recordHit(kind)
		return v, true, nil
	}
	c.recordMiss(kind)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*T), false, nil
}

func lookup[T any](ctx context.Context, c *Cache, key string) (*T, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &v, true
}

func (c *Cache) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns the hit and miss counts since start.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) recordHit(kind string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(kind).Inc()
	}
}

func (c *Cache) recordMiss(kind string) {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(kind).Inc()
	}
}

func buildKey(kind, snapshotID string, v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", v))
	}
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%s%s:%s:%x", keyPrefix, kind, snapshotID, hash[:16])
}
