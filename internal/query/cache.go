package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without refetching.
const DefaultStaleTime = 5 * time.Minute

// refetchConcurrency bounds the fetchers Refetch runs at once.
const refetchConcurrency = 4

type fetchFunc func(context.Context) (any, error)

type entry struct {
	key       Key
	value     any
	updatedAt time.Time
	stale     bool
	// loaded is false while the first fetch of the key is running.
	loaded bool
	// gen is raised from the cache-wide counter on every invalidation, so
	// a fetch that started before it cannot store its result as fresh.
	gen   uint64
	fetch fetchFunc
}

// flight is the shared outcome of one fetch.
type flight struct {
	value any
	gen   uint64
}

// maxLoadAttempts bounds how often a caller waits out a fetch that began
// before the caller's latest invalidation.
const maxLoadAttempts = 3

// CacheOptions configures a Cache.
type CacheOptions struct {
	StaleTime time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

// Cache is an in-memory keyed store of fetched values. Concurrent fetches of
// one key share a single call.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	gen       uint64
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewCache creates an empty Cache.
func NewCache(opts CacheOptions) *Cache {
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		entries:   make(map[string]*entry),
		staleTime: opts.StaleTime,
		now:       opts.Now,
		log:       opts.Logger.With(zap.String("component", "query")),
	}
}

// Fetch returns the cached value for key if it is present and fresh.
// Otherwise it calls fn, stores the result and returns it. At most one
// fetch per key runs at a time. Callers that arrive while it runs share its
// result, made with its context, unless the key was invalidated between
// the fetch starting and their arrival; those callers wait for it to end
// and fetch again.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.fresh(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	fetch := func(ctx context.Context) (any, error) { return fn(ctx) }
	v, err := c.load(ctx, key, fetch)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached %T, want %T", key, v, zero)
	}
	return t, nil
}

func (c *Cache) fresh(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.id()]
	if !ok || e.stale || c.now().Sub(e.updatedAt) >= c.staleTime {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) load(ctx context.Context, key Key, fetch fetchFunc) (any, error) {
	id := key.id()
	for attempt := 1; ; attempt++ {
		seen := c.track(key)
		res, err, _ := c.group.Do(id, func() (any, error) {
			return c.run(ctx, key, fetch)
		})
		if err != nil {
			return nil, err
		}
		f := res.(flight)
		if f.gen >= seen || attempt == maxLoadAttempts {
			return f.value, nil
		}
		c.log.Debug("fetch predates invalidation, refetching", zap.Stringer("key", key))
	}
}

// track returns the generation of key, creating an unloaded entry so that
// invalidations during the first fetch are recorded.
func (c *Cache) track(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(key).gen
}

// entry returns the entry for key, creating it if needed. Callers hold mu.
func (c *Cache) entry(key Key) *entry {
	id := key.id()
	e, ok := c.entries[id]
	if !ok {
		c.gen++
		e = &entry{key: key.clone(), gen: c.gen, stale: true}
		c.entries[id] = e
	}
	return e
}

// run performs one fetch and stores its result. The result is stored as
// stale when the entry was invalidated, removed or restored meanwhile.
func (c *Cache) run(ctx context.Context, key Key, fetch fetchFunc) (flight, error) {
	c.mu.Lock()
	started := c.entry(key)
	gen := started.gen
	c.mu.Unlock()

	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	id := key.id()
	if err != nil {
		if e, ok := c.entries[id]; ok && e == started && !e.loaded {
			delete(c.entries, id)
		}
		return flight{}, err
	}

	e := c.entry(key)
	e.value = v
	e.updatedAt = c.now()
	e.loaded = true
	e.stale = e != started || e.gen != gen
	e.fetch = fetch
	return flight{value: v, gen: gen}, nil
}

// GetData returns the cached value for key regardless of staleness.
func GetData[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key.id()]
	if !ok || !e.loaded {
		return zero, false
	}
	t, ok := e.value.(T)
	return t, ok
}

// SetData stores value under key as freshly fetched.
func (c *Cache) SetData(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(key)
	e.value = value
	e.updatedAt = c.now()
	e.loaded = true
	e.stale = false
}

// Update rewrites every cached value of type T under prefix with fn.
// Entries holding other types are left alone.
func Update[T any](c *Cache, prefix Key, fn func(T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		if t, ok := e.value.(T); ok {
			e.value = fn(t)
		}
	}
}

// Remove drops every entry under prefix.
func (c *Cache) Remove(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, id)
		}
	}
}

// Invalidate marks every entry under prefix stale. The next read refetches.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			c.gen++
			e.stale = true
			e.gen = c.gen
			n++
		}
	}
	c.log.Debug("invalidated", zap.Stringer("prefix", prefix), zap.Int("entries", n))
}

// Refetch reruns the stored fetchers of the stale entries under prefix.
// Failures are logged and leave the entry stale.
func (c *Cache) Refetch(ctx context.Context, prefix Key) {
	c.mu.Lock()
	type job struct {
		key   Key
		fetch fetchFunc
	}
	var jobs []job
	for _, e := range c.entries {
		if e.stale && e.fetch != nil && e.key.HasPrefix(prefix) {
			jobs = append(jobs, job{key: e.key, fetch: e.fetch})
		}
	}
	c.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(refetchConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if _, err := c.load(ctx, j.key, j.fetch); err != nil {
				c.log.Warn("refetch failed", zap.Stringer("key", j.key), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Snapshot is a saved copy of cache entries, for rollback.
type Snapshot struct {
	prefix  Key
	entries map[string]entry
}

// Snapshot copies the entries under prefix. Values are copied shallowly;
// callers must replace cached values rather than mutate them in place.
func (c *Cache) Snapshot(prefix Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{prefix: prefix.clone(), entries: make(map[string]entry)}
	for id, e := range c.entries {
		if e.loaded && e.key.HasPrefix(prefix) {
			s.entries[id] = *e
		}
	}
	return s
}

// Restore puts the entries of s back. Entries under the snapshot's prefix
// that did not exist when it was taken are dropped.
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if _, ok := s.entries[id]; !ok && e.key.HasPrefix(s.prefix) {
			delete(c.entries, id)
		}
	}
	for id, e := range s.entries {
		restored := e
		if cur, ok := c.entries[id]; ok {
			restored.gen = cur.gen
		}
		c.entries[id] = &restored
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
