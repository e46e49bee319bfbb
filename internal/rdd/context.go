package rdd

import (
	"context"
	"iter"
	"sync/atomic"
)

// CacheTracker memoizes a split's computed sequence so that a persisted
// RDD's partition is only computed once even when several downstream RDDs
// read it. Implementations must guarantee at most one concurrent producer
// per (rddID, splitIndex) pair; see internal/env.Cache for the process-wide
// implementation.
type CacheTracker interface {
	GetOrCompute(ctx context.Context, rddID, splitIndex int, produce func() (iter.Seq[any], error)) (iter.Seq[any], error)
}

// Context is the per-job allocator for RDD and shuffle identifiers. Every
// RDD constructed for a job shares one Context, the same way every RDD in
// Spark shares one SparkContext. Besides handing out monotonically
// increasing ids, it only holds the cache tracker and the shuffle substrate
// it was given (see NewContext and WithShuffle); Context itself never dials
// out over the network.
type Context struct {
	cache         CacheTracker
	store         ShuffleStore
	tracker       ShuffleTracker
	fetcher       ShuffleFetcher
	nextRDDID     atomic.Int64
	nextShuffleID atomic.Int64
}

// NewContext creates a Context. cache may be nil, in which case WithCache
// falls back to recomputing on every Iterator call.
func NewContext(cache CacheTracker) *Context {
	return &Context{cache: cache}
}

// WithShuffle attaches the shuffle substrate (block store, map-output
// tracker, fetcher) a ShuffledRdd or CoGroupedRdd needs to actually move
// data between partitions. A Context used only for narrow transforms never
// needs this.
func (c *Context) WithShuffle(store ShuffleStore, tracker ShuffleTracker, fetcher ShuffleFetcher) *Context {
	c.store = store
	c.tracker = tracker
	c.fetcher = fetcher
	return c
}

// NewRDDID allocates the next RDD id, unique within this Context.
func (c *Context) NewRDDID() int {
	return int(c.nextRDDID.Add(1) - 1)
}

// NewShuffleID allocates the next shuffle id, unique within this Context.
func (c *Context) NewShuffleID() int {
	return int(c.nextShuffleID.Add(1) - 1)
}
