// Package ttlcache is an in-memory key/value cache whose entries expire a
// fixed duration after they were written.
//
// Expired entries are evicted lazily by the Get that observes them. Callers
// with high-cardinality keys can additionally bound the number of entries
// (least recently used entries are dropped first) or call Sweep periodically.
package ttlcache

import (
	"catalogmatch/internal/components/assert"
	"catalogmatch/internal/components/chrono"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const DefaultTTL = 5 * time.Minute

type Options struct {
	// TTL defaults to DefaultTTL when zero.
	TTL time.Duration
	// MaxEntries bounds the number of stored entries, zero means unbounded.
	MaxEntries int
	// Time defaults to the system clock.
	Time chrono.TimeAPI
}

type Stats struct {
	Size int `json:"size"`
}

type entry[V any] struct {
	value     V
	writtenAt time.Time
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	ttl  time.Duration
	time chrono.TimeAPI

	mu      sync.Mutex
	entries *simplelru.LRU[string, entry[V]]
}

func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	assert.True(opts.MaxEntries >= 0, "ttlcache: MaxEntries must not be negative")
	size := opts.MaxEntries
	if size == 0 {
		size = math.MaxInt
	}
	// only fails for a non-positive size
	entries, err := simplelru.NewLRU[string, entry[V]](size, nil)
	if err != nil {
		panic(err)
	}
	return &Cache[V]{
		ttl:     opts.TTL,
		time:    opts.Time,
		entries: entries,
	}
}

func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.writtenAt) >= c.ttl
}

// Get returns the value stored under key, ok is false if it was never set or
// has expired, expired entries are deleted.
func (c *Cache[V]) Get(key string) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return value, false
	}
	if c.expired(e, c.time.Now()) {
		c.entries.Remove(key)
		return value, false
	}
	return e.value, true
}

// Set stores value under key, overwriting and refreshing any existing entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(key, entry[V]{
		value:     value,
		writtenAt: c.time.Now(),
	})
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Stats reports the number of stored entries, which may include expired
// entries that no Get has observed yet.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.entries.Len()}
}

// Sweep deletes every expired entry and returns how many were deleted.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.time.Now()
	removed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && c.expired(e, now) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}
