package env

import (
	"context"
	"iter"
	"sync"
)

// Cache memoizes a persisted RDD's computed partitions. It guarantees at
// most one concurrent producer per (rddID, splitIndex): a second caller
// that arrives while a partition is being computed waits for the first
// call's result instead of recomputing it, the same "don't hold the lock
// during the external call" discipline this codebase's registries use,
// applied here to a compute instead of a network call.
//
// Cache has no size bound and no eviction policy of its own: entries are
// dropped only by an explicit Evict call.
type Cache struct {
	entries sync.Map // key{rddID,splitIndex} -> *cacheEntry
}

type cacheKey struct {
	rddID      int
	splitIndex int
}

type cacheEntry struct {
	once  sync.Once
	value iter.Seq[any]
	err   error
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// GetOrCompute returns the cached sequence for (rddID, splitIndex),
// computing it via produce on the first call and serving every subsequent
// call — concurrent or not — from that single result.
func (c *Cache) GetOrCompute(_ context.Context, rddID, splitIndex int, produce func() (iter.Seq[any], error)) (iter.Seq[any], error) {
	key := cacheKey{rddID: rddID, splitIndex: splitIndex}
	actual, _ := c.entries.LoadOrStore(key, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.once.Do(func() {
		entry.value, entry.err = produce()
	})
	return entry.value, entry.err
}

// Evict drops every cached partition for rddID, used when an RDD's cached
// data is no longer needed.
func (c *Cache) Evict(rddID int) {
	c.entries.Range(func(k, _ any) bool {
		if key, ok := k.(cacheKey); ok && key.rddID == rddID {
			c.entries.Delete(key)
		}
		return true
	})
}
