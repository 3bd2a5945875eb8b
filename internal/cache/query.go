package cache

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"storefront/catalog/internal/domain"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"
)

// DefaultQueryTTL matches the durable product cache TTL so both expire together.
const DefaultQueryTTL = time.Hour

// Key identifies a cached query result.
type Key uint64

func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 16)
}

// ProductsKey hashes the parameters of a product listing. Structurally equal
// parameters always produce the same key.
func ProductsKey(filters domain.ProductFilters, pageSize, page int) Key {
	// Struct fields marshal in declaration order, which makes the encoding canonical.
	data, _ := json.Marshal(struct {
		Filters  domain.ProductFilters `json:"f"`
		PageSize int                   `json:"s"`
		Page     int                   `json:"p"`
	}{filters, pageSize, page})
	return Key(xxhash.Sum64(data))
}

// NameKey hashes a fixed query name, e.g. "categories".
func NameKey(name string) Key {
	return Key(xxhash.Sum64String(name))
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// QueryCache is a TTL-bounded cache of derived results for one entity type.
type QueryCache[T any] struct {
	name  string
	ttl   time.Duration
	clock clock.Clock

	mu      sync.Mutex
	gen     uint64 // Bumped by InvalidateAll
	entries map[Key]entry[T]
}

func NewQueryCache[T any](name string, ttl time.Duration, clk clock.Clock) *QueryCache[T] {
	if ttl <= 0 {
		ttl = DefaultQueryTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &QueryCache[T]{
		name:    name,
		ttl:     ttl,
		clock:   clk,
		entries: make(map[Key]entry[T]),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *QueryCache[T]) Get(key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.clock.Since(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *QueryCache[T]) Set(key Key, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[T]{value: value, storedAt: c.clock.Now()}
}

// Generation identifies the cache contents between two InvalidateAll calls.
// Read it before computing a value and store the value with SetAt.
func (c *QueryCache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gen
}

// SetAt stores value only if nothing was invalidated since gen was read.
// It reports whether the value was stored.
func (c *QueryCache[T]) SetAt(gen uint64, key Key, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		log.Debugf("Query cache %s dropped a result computed before the last invalidation", c.name)
		return false
	}
	c.entries[key] = entry[T]{value: value, storedAt: c.clock.Now()}
	return true
}

// Invalidate drops a single query result.
func (c *QueryCache[T]) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// InvalidateAll drops every cached result of this entity type.
func (c *QueryCache[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.entries); n > 0 {
		log.Debugf("Query cache %s cleared (%d entries)", c.name, n)
	}
	c.gen++
	c.entries = make(map[Key]entry[T])
}

func (c *QueryCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
