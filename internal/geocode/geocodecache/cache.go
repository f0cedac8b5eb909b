// Package geocodecache memoizes address resolutions for the lifetime of the
// process. Lookups go memory -> redis (optional) -> resolver; concurrent
// misses for one address share a single resolver call.
package geocodecache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/dante-alig/lovelyplace-back/internal/cache/keys"
	"github.com/dante-alig/lovelyplace-back/internal/cache/redisstore"
	"github.com/dante-alig/lovelyplace-back/internal/core/model"
	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
	"github.com/dante-alig/lovelyplace-back/internal/geocode"
)

// Remote is the shared tier. *redisstore.Client satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Options struct {
	Size int
	// TTL of zero keeps entries until evicted by size.
	TTL       time.Duration
	Remote    Remote
	OpTimeout time.Duration
	// ResolveTimeout bounds a shared resolution. It runs detached from any
	// single caller, so one caller giving up never fails the others.
	ResolveTimeout time.Duration
}

type Cache struct {
	mem            *expirable.LRU[string, model.Coordinate]
	group          singleflight.Group
	remote         Remote
	ttl            time.Duration
	opTimeout      time.Duration
	resolveTimeout time.Duration
	logger         *slog.Logger

	// mu guards inflight and orders memory writes against Forget.
	mu       sync.Mutex
	inflight map[string]*flight
}

// flight is one shared resolution; Forget marks it stale so its result is
// handed to waiters but not stored.
type flight struct {
	stale bool
}

func New(opts Options, logger *slog.Logger) *Cache {
	if opts.Size <= 0 {
		opts.Size = 10_000
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 10 * time.Second
	}
	return &Cache{
		mem:            expirable.NewLRU[string, model.Coordinate](opts.Size, nil, opts.TTL),
		remote:         opts.Remote,
		ttl:            opts.TTL,
		opTimeout:      opts.OpTimeout,
		resolveTimeout: opts.ResolveTimeout,
		logger:         logger,
		inflight:       make(map[string]*flight),
	}
}

type flightResult struct {
	coord model.Coordinate
}

// GetOrResolve returns the cached coordinate for address or resolves it with r.
// Failures are returned to the caller and never stored.
func (c *Cache) GetOrResolve(ctx context.Context, address string, r geocode.Resolver) (model.Coordinate, error) {
	key := keys.GeocodeKey(address)
	if v, ok := c.mem.Get(key); ok {
		observability.IncGeocodeCacheHit("memory")
		return v, nil
	}

	leader := false
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		return c.resolve(ctx, key, address, r)
	})

	select {
	case <-ctx.Done():
		return model.Coordinate{}, ctx.Err()
	case res := <-ch:
		if !leader {
			observability.IncGeocodeCoalesced()
		}
		if res.Err != nil {
			return model.Coordinate{}, res.Err
		}
		return res.Val.(flightResult).coord, nil
	}
}

// resolve runs once per key for all concurrent callers. It keeps the
// caller's values but not its deadline or cancellation.
func (c *Cache) resolve(ctx context.Context, key, address string, r geocode.Resolver) (any, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.resolveTimeout)
	defer cancel()

	f := &flight{}
	c.mu.Lock()
	c.inflight[key] = f
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.inflight[key] == f {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
	}()

	if v, ok := c.remoteGet(ctx, key); ok {
		c.store(key, f, v, false)
		return flightResult{coord: v}, nil
	}
	observability.IncGeocodeCacheMiss()

	v, err := r.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}
	c.store(key, f, v, true)
	return flightResult{coord: v}, nil
}

// store writes v unless f was invalidated while resolving.
func (c *Cache) store(key string, f *flight, v model.Coordinate, remote bool) {
	c.mu.Lock()
	if f.stale {
		c.mu.Unlock()
		return
	}
	c.mem.Add(key, v)
	c.mu.Unlock()
	if !remote {
		return
	}

	c.remoteSet(context.Background(), key, v)
	c.mu.Lock()
	stale := f.stale
	c.mu.Unlock()
	if stale && c.remote != nil {
		// Forget ran between the memory write and the remote write
		ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
		defer cancel()
		_ = c.remote.Del(ctx, key)
	}
}

// Forget drops address from every tier. A resolution already in flight
// still answers its waiters but does not repopulate the cache.
func (c *Cache) Forget(ctx context.Context, address string) error {
	key := keys.GeocodeKey(address)
	c.mu.Lock()
	c.mem.Remove(key)
	if f, ok := c.inflight[key]; ok {
		f.stale = true
	}
	c.mu.Unlock()
	c.group.Forget(key)
	if c.remote == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.remote.Del(ctx, key)
}

func (c *Cache) Len() int { return c.mem.Len() }

// Bind returns a Resolver that goes through the cache.
func (c *Cache) Bind(r geocode.Resolver) geocode.Resolver {
	return geocode.ResolverFunc(func(ctx context.Context, address string) (model.Coordinate, error) {
		return c.GetOrResolve(ctx, address, r)
	})
}

// remote tier failures degrade to a miss
func (c *Cache) remoteGet(ctx context.Context, key string) (model.Coordinate, bool) {
	if c.remote == nil {
		return model.Coordinate{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	b, err := c.remote.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redisstore.ErrNil) {
			c.logger.Warn("geocode cache remote get failed", "key", key, "err", err)
		}
		return model.Coordinate{}, false
	}
	var v model.Coordinate
	if err := json.Unmarshal(b, &v); err != nil {
		c.logger.Warn("geocode cache entry corrupt", "key", key, "err", err)
		return model.Coordinate{}, false
	}
	observability.IncGeocodeCacheHit("redis")
	return v, true
}

func (c *Cache) remoteSet(ctx context.Context, key string, v model.Coordinate) {
	if c.remote == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()
	if err := c.remote.Set(ctx, key, b, c.ttl); err != nil {
		c.logger.Warn("geocode cache remote set failed", "key", key, "err", err)
	}
}
