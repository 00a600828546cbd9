// Package cache wraps a ResourceRepository with a Redis read-through cache
// for the two hottest public reads: the featured strip on the home page and
// the first page of each category listing.
//
// Invalidation uses a generation counter. Every cached key embeds the current
// generation; any write bumps it, which orphans all earlier keys at once.
// Orphans simply expire through their TTL. Each generation also keeps a set
// of the keys cached under it, so a write whose bump fails can still delete
// them instead of leaving stale pages (possibly showing an unpublished
// resource) in place until they expire.
//
// Redis is optional at runtime. If a Redis call fails the read falls through
// to the store and a warning is logged; a failing cache never fails a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/resource-showcase/internal/model"
	"github.com/sakif/resource-showcase/internal/repository"
)

// DefaultTTL bounds how stale a cached listing can be.
const DefaultTTL = 60 * time.Second

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Repository is a caching decorator; it satisfies repository.ResourceRepository.
type Repository struct {
	next   repository.ResourceRepository
	rdb    Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

var _ repository.ResourceRepository = (*Repository)(nil)

// New wraps next. prefix namespaces the keys ("showcase" when empty).
func New(next repository.ResourceRepository, rdb Client, prefix string, ttl time.Duration, log *slog.Logger) *Repository {
	if prefix == "" {
		prefix = "showcase"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{next: next, rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: pinging redis: %w", err)
	}
	return rdb, nil
}

// pageEntry is the cached form of a repository.Page.
type pageEntry struct {
	Resources  []model.Resource `json:"resources"`
	HasMore    bool             `json:"hasMore"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func (c *Repository) genKey() string { return c.prefix + ":gen" }

// indexKey names the set of keys cached under gen.
func indexKey(prefix, gen string) string { return prefix + ":" + gen + ":keys" }

// generation returns the current generation, "0" before the first write.
func (c *Repository) generation(ctx context.Context) (string, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func featuredKey(prefix, gen string, limit int) string {
	return fmt.Sprintf("%s:%s:featured:%d", prefix, gen, limit)
}

func publishedKey(prefix, gen string, category model.Category, limit int) string {
	if category == "" {
		category = model.CategoryAll
	}
	return fmt.Sprintf("%s:%s:published:%s:%d", prefix, gen, category, limit)
}

// cacheable reports whether q is a first page without a search term.
func cacheable(q repository.PublishedQuery) bool {
	return q.Cursor == "" && q.Search == ""
}

// load fetches key into dst. It reports false on a miss or any Redis error.
func (c *Repository) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Repository) store(ctx context.Context, gen, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
		return
	}
	idx := indexKey(c.prefix, gen)
	if err := c.rdb.SAdd(ctx, idx, key).Err(); err != nil {
		c.log.Warn("cache index write failed", "key", idx, "error", err)
		return
	}
	// The index outlives its entries by one TTL at most.
	c.rdb.Expire(ctx, idx, 2*c.ttl)
}

// invalidate bumps the generation after a successful write. If the bump
// fails, the keys of the current generation are deleted instead.
func (c *Repository) invalidate(ctx context.Context) {
	gen, genErr := c.generation(ctx)
	err := c.rdb.Incr(ctx, c.genKey()).Err()
	if err == nil {
		return
	}
	c.log.Error("cache invalidation failed", "error", err)
	if genErr != nil {
		return
	}

	idx := indexKey(c.prefix, gen)
	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		c.log.Error("cache index read failed", "key", idx, "error", err)
		return
	}
	if err := c.rdb.Del(ctx, append(keys, idx)...).Err(); err != nil {
		c.log.Error("cache eviction failed", "generation", gen, "error", err)
	}
}

func (c *Repository) ListFeatured(ctx context.Context, limit int) ([]model.Resource, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn("cache generation read failed", "error", err)
		return c.next.ListFeatured(ctx, limit)
	}

	key := featuredKey(c.prefix, gen, limit)
	var cached []model.Resource
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	rs, err := c.next.ListFeatured(ctx, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, gen, key, rs)
	return rs, nil
}

func (c *Repository) ListPublished(ctx context.Context, q repository.PublishedQuery) (*repository.Page, error) {
	if !cacheable(q) {
		return c.next.ListPublished(ctx, q)
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn("cache generation read failed", "error", err)
		return c.next.ListPublished(ctx, q)
	}

	key := publishedKey(c.prefix, gen, repository.NormalizeCategory(q.Category), q.Limit)
	var cached pageEntry
	if c.load(ctx, key, &cached) {
		return &repository.Page{Resources: cached.Resources, HasMore: cached.HasMore, NextCursor: cached.NextCursor}, nil
	}

	page, err := c.next.ListPublished(ctx, q)
	if err != nil {
		return nil, err
	}
	c.store(ctx, gen, key, pageEntry{Resources: page.Resources, HasMore: page.HasMore, NextCursor: page.NextCursor})
	return page, nil
}

// Uncached reads.

func (c *Repository) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	return c.next.GetByID(ctx, id)
}

func (c *Repository) ListAll(ctx context.Context) ([]model.Resource, error) {
	return c.next.ListAll(ctx)
}

// Writes go straight through and then invalidate.

func (c *Repository) Create(ctx context.Context, r *model.Resource) error {
	if err := c.next.Create(ctx, r); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *Repository) Update(ctx context.Context, id string, patch model.ResourcePatch) error {
	if err := c.next.Update(ctx, id, patch); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *Repository) Delete(ctx context.Context, id string) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// Ping forwards to the wrapped store when it supports it.
func (c *Repository) Ping(ctx context.Context) error {
	if p, ok := c.next.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
