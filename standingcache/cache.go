package standingcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mediatheque-go/lending/core"
	"github.com/mediatheque-go/lending/ledger"
)

// DefaultTTL bounds how long a standing may be served without reloading.
const DefaultTTL = 5 * time.Minute

const (
	metricLookups      = "standing_cache_lookups_total"
	metricInvalidation = "standing_cache_invalidations_total"
	labelResult        = "result"
	resultHit          = "hit"
	resultMiss         = "miss"
	resultStale        = "stale_put_dropped"
)

// Loader computes the authoritative standing of a member.
type Loader func(ctx context.Context, memberID uuid.UUID) (core.Standing, error)

type entry struct {
	standing core.Standing
	storedAt time.Time
}

// flight tracks the loads of one member that are in progress. Invalidate bumps its
// generation so that those loads do not store what they read.
type flight struct {
	loads      int
	generation uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]entry
	inflight map[uuid.UUID]*flight

	loader  Loader
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	metrics ledger.MetricsCollector
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the time after which an entry is reloaded. A non-positive ttl keeps
// entries until they are invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock replaces time.Now for TTL bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics counts hits, misses, dropped stale loads and invalidations.
func WithMetrics(collector ledger.MetricsCollector) Option {
	return func(c *Cache) {
		c.metrics = collector
	}
}

// New creates a Cache that loads misses with loader.
func New(loader Loader, options ...Option) *Cache {
	c := &Cache{
		entries:  make(map[uuid.UUID]entry),
		inflight: make(map[uuid.UUID]*flight),
		loader:   loader,
		ttl:      DefaultTTL,
		now:      time.Now,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// Get returns the cached standing of the member, loading it on a miss.
// The load is shared by concurrent callers and is not canceled when one of them gives up.
func (c *Cache) Get(ctx context.Context, memberID uuid.UUID) (core.Standing, error) {
	standing, ok := c.lookup(memberID)
	if ok {
		c.count(metricLookups, resultHit)
		return standing, nil
	}

	c.count(metricLookups, resultMiss)

	generation := c.beginLoad(memberID)
	defer c.endLoad(memberID)

	// Callers that arrive after an invalidation use a new key and never join a stale load.
	key := memberID.String() + "/" + strconv.FormatUint(generation, 10)
	loadCtx := context.WithoutCancel(ctx)

	value, err, _ := c.group.Do(key, func() (any, error) {
		loaded, loadErr := c.loader(loadCtx, memberID)
		if loadErr != nil {
			return core.Standing{}, loadErr
		}

		c.put(memberID, loaded, generation)

		return loaded, nil
	})
	if err != nil {
		return core.Standing{}, err
	}

	return value.(core.Standing), nil
}

// Invalidate drops the member's entry and fences off loads that are in flight.
func (c *Cache) Invalidate(memberID uuid.UUID) {
	c.mu.Lock()
	if f, ok := c.inflight[memberID]; ok {
		f.generation++
	}
	delete(c.entries, memberID)
	c.mu.Unlock()

	c.count(metricInvalidation, "")
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache) lookup(memberID uuid.UUID) (core.Standing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[memberID]
	if !ok {
		return core.Standing{}, false
	}

	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, memberID)
		return core.Standing{}, false
	}

	return e.standing, true
}

// beginLoad registers a caller that is about to load and returns the generation it loads for.
func (c *Cache) beginLoad(memberID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.inflight[memberID]
	if !ok {
		f = &flight{}
		c.inflight[memberID] = f
	}
	f.loads++

	return f.generation
}

// endLoad forgets the member's generation once its last load has finished.
func (c *Cache) endLoad(memberID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.inflight[memberID]
	if !ok {
		return
	}

	f.loads--
	if f.loads == 0 {
		delete(c.inflight, memberID)
	}
}

// put stores the standing unless the member was invalidated since the load started.
func (c *Cache) put(memberID uuid.UUID, standing core.Standing, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.inflight[memberID]; !ok || f.generation != generation {
		c.count(metricLookups, resultStale)
		return
	}

	c.entries[memberID] = entry{standing: standing, storedAt: c.now()}
}

func (c *Cache) count(metric, result string) {
	if c.metrics == nil {
		return
	}

	labels := map[string]string{}
	if result != "" {
		labels[labelResult] = result
	}

	c.metrics.IncrementCounter(metric, labels)
}

