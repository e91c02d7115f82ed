package authz

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// DecisionCache stores recent authorization decisions. Entries carry a
// short TTL; staleness may never outlive it. Implementations must be
// safe for concurrent use.
//
// Invalidation is generation based: bumping a generation orphans every
// entry written under the old one, so no key scan is needed. A user
// bump covers all communities, which over-invalidates slightly but
// keeps ban changes from being masked by entries cached under another
// community key.
type DecisionCache interface {
	Get(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID, key string) (allowed, ok bool)
	Set(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID, key string, allowed bool)
	InvalidateUser(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID)
	InvalidateAll(ctx context.Context)
}

const (
	genKey     = "authz:gen"
	userGenKey = "authz:ugen:"
)

// RedisCache is the shared decision cache used when Redis is configured
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed decision cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) entryKey(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID, key string) string {
	gen, err := c.client.Get(ctx, genKey).Result()
	if err != nil {
		gen = "0"
	}
	ugen, err := c.client.Get(ctx, userGenKey+userID.String()).Result()
	if err != nil {
		ugen = "0"
	}

	scope := "site"
	if communityID != nil {
		scope = communityID.String()
	}
	return fmt.Sprintf("authz:dec:%s:%s:%s:%s:%s", gen, ugen, userID, scope, key)
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID, key string) (bool, bool) {
	val, err := c.client.Get(ctx, c.entryKey(ctx, userID, communityID, key)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, communityID *uuid.UUID, key string, allowed bool) {
	val := "0"
	if allowed {
		val = "1"
	}
	c.client.Set(ctx, c.entryKey(ctx, userID, communityID, key), val, c.ttl)
}

func (c *RedisCache) InvalidateUser(ctx context.Context, userID uuid.UUID, _ *uuid.UUID) {
	c.client.Incr(ctx, userGenKey+userID.String())
}

func (c *RedisCache) InvalidateAll(ctx context.Context) {
	c.client.Incr(ctx, genKey)
}

// LocalCache is an in-process fallback used when no Redis URL is
// configured. Wrong for multi-instance deployments; the TTL still
// bounds staleness within one process.
type LocalCache struct {
	mu      sync.Mutex
	lru     *expirable.LRU[string, bool]
	gen     uint64
	userGen map[uuid.UUID]uint64
}

// NewLocalCache creates an in-process decision cache
func NewLocalCache(size int, ttl time.Duration) *LocalCache {
	return &LocalCache{
		lru:     expirable.NewLRU[string, bool](size, nil, ttl),
		userGen: make(map[uuid.UUID]uint64),
	}
}

func (c *LocalCache) entryKey(userID uuid.UUID, communityID *uuid.UUID, key string) string {
	scope := "site"
	if communityID != nil {
		scope = communityID.String()
	}
	return strconv.FormatUint(c.gen, 10) + ":" +
		strconv.FormatUint(c.userGen[userID], 10) + ":" +
		userID.String() + ":" + scope + ":" + key
}

func (c *LocalCache) Get(_ context.Context, userID uuid.UUID, communityID *uuid.UUID, key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(c.entryKey(userID, communityID, key))
}

func (c *LocalCache) Set(_ context.Context, userID uuid.UUID, communityID *uuid.UUID, key string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(c.entryKey(userID, communityID, key), allowed)
}

func (c *LocalCache) InvalidateUser(_ context.Context, userID uuid.UUID, _ *uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userGen[userID]++
}

func (c *LocalCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}
