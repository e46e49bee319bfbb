package rdd

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/dreamware/flint/internal/flinterr"
	"github.com/dreamware/flint/internal/partition"
	"github.com/dreamware/flint/internal/split"
)

// keyedPair is satisfied by every Pair[K, V], letting CoGroupedRdd read a
// parent's key/value without knowing V.
type keyedPair interface {
	AnyKey() any
	AnyValue() any
}

type cogroupSplit struct {
	idx int
}

func (s cogroupSplit) Index() int { return s.idx }

// CoGroupedRdd buckets each of its parents' values by key, producing, for
// every key seen in any parent, one []any slice per parent (in parent
// order) holding that parent's values for the key — empty where a parent
// had none. It is the shared machinery behind CoGroup and Join.
type CoGroupedRdd[K comparable] struct {
	ctx        *Context
	parents    []Base
	part       partition.Partitioner
	iterate    func(context.Context, split.Split) (iter.Seq[Pair[K, [][]any]], error)
	id         int
	shuffleIDs []int
	splits     []split.Split

	mapOnce []sync.Once
	mapErrs []error
}

// NewCoGroupedRdd builds a CoGroupedRdd over parents, each of which must
// yield elements satisfying keyedPair (i.e. be built from Pair[K, V] for
// some V). Most callers reach this through CoGroup or Join instead.
func NewCoGroupedRdd[K comparable](ctx *Context, part partition.Partitioner, parents ...Base) *CoGroupedRdd[K] {
	n := part.NumPartitions()
	splits := make([]split.Split, n)
	for i := range splits {
		splits[i] = cogroupSplit{idx: i}
	}

	shuffleIDs := make([]int, len(parents))
	for i := range shuffleIDs {
		shuffleIDs[i] = ctx.NewShuffleID()
	}

	c := &CoGroupedRdd[K]{
		ctx:        ctx,
		parents:    parents,
		part:       part,
		id:         ctx.NewRDDID(),
		shuffleIDs: shuffleIDs,
		splits:     splits,
		mapOnce:    make([]sync.Once, len(parents)),
		mapErrs:    make([]error, len(parents)),
	}
	c.iterate = WithCache(ctx, c, c.compute)
	return c
}

func (c *CoGroupedRdd[K]) ID() int               { return c.id }
func (c *CoGroupedRdd[K]) Splits() []split.Split { return c.splits }
func (c *CoGroupedRdd[K]) NumPartitions() int    { return len(c.splits) }

func (c *CoGroupedRdd[K]) Dependencies() []Dependency {
	deps := make([]Dependency, len(c.parents))
	for i, p := range c.parents {
		deps[i] = ShuffleDependency{P: p, Aggregator: cogroupAggregator[K](), Partitioner: c.part, ShuffleID: c.shuffleIDs[i]}
	}
	return deps
}

// cogroupAggregator returns the Aggregator[K, any, []any] value describing
// what ensureMapOutputs actually does to each parent's values: collect them
// into a per-key list, one singleton list per first value and a plain append
// thereafter. It exists only so the recorded ShuffleDependency carries the
// same CreateCombiner/MergeValue/MergeCombiners shape ShuffledRdd records,
// since ensureMapOutputs itself never builds an Aggregator value to run.
func cogroupAggregator[K comparable]() Aggregator[K, any, []any] {
	return Aggregator[K, any, []any]{
		CreateCombiner: func(v any) []any { return []any{v} },
		MergeValue:     func(c []any, v any) []any { return append(c, v) },
		MergeCombiners: func(a, b []any) []any { return append(a, b...) },
	}
}

func (c *CoGroupedRdd[K]) Partitioner() (partition.Partitioner, bool) { return c.part, true }

// ensureMapOutputs runs the map side for one parent: every value it
// produces is bucketed, per key, into a one-element-per-value []any list
// (the combiner), pre-merged within each map partition exactly like
// ShuffledRdd's aggregator, then published to the shuffle store keyed by
// that parent's own shuffle id.
func (c *CoGroupedRdd[K]) ensureMapOutputs(ctx context.Context, parentIdx int) error {
	c.mapOnce[parentIdx].Do(func() {
		parent := c.parents[parentIdx]
		shuffleID := c.shuffleIDs[parentIdx]

		if c.ctx.store == nil || c.ctx.tracker == nil {
			c.mapErrs[parentIdx] = fmt.Errorf("cogrouped rdd %d: no shuffle store configured on context", c.id)
			return
		}

		for mi, ps := range parent.Splits() {
			if c.ctx.tracker.HasOutput(shuffleID, mi) {
				continue
			}

			seq, err := parent.IteratorAny(ctx, ps)
			if err != nil {
				c.mapErrs[parentIdx] = err
				return
			}

			byReduce := make([]map[K][]any, c.part.NumPartitions())
			for i := range byReduce {
				byReduce[i] = make(map[K][]any)
			}

			for v := range seq {
				kp, ok := v.(keyedPair)
				if !ok {
					c.mapErrs[parentIdx] = fmt.Errorf("cogrouped rdd %d: parent %d element %T is not a keyed pair", c.id, parentIdx, v)
					return
				}
				key, ok := kp.AnyKey().(K)
				if !ok {
					c.mapErrs[parentIdx] = fmt.Errorf("cogrouped rdd %d: parent %d key %#v has wrong type", c.id, parentIdx, kp.AnyKey())
					return
				}
				ri := c.part.Partition(key)
				byReduce[ri][key] = append(byReduce[ri][key], kp.AnyValue())
			}

			for ri, bucket := range byReduce {
				entries := make([]wireEntry[K, []any], 0, len(bucket))
				for k, vs := range bucket {
					entries = append(entries, wireEntry[K, []any]{Key: k, Combiner: vs})
				}
				data, err := json.Marshal(entries)
				if err != nil {
					c.mapErrs[parentIdx] = &flinterr.SerializationError{Op: "encode cogroup block", Err: err}
					return
				}
				if err := c.ctx.store.Put(shuffleID, mi, ri, data); err != nil {
					c.mapErrs[parentIdx] = err
					return
				}
			}

			c.ctx.tracker.Register(shuffleID, mi, c.ctx.store.URI())
		}
	})
	return c.mapErrs[parentIdx]
}

func (c *CoGroupedRdd[K]) compute(ctx context.Context, sp split.Split) (iter.Seq[Pair[K, [][]any]], error) {
	rs := MustSplit[cogroupSplit](sp)

	if c.ctx.fetcher == nil {
		return nil, fmt.Errorf("cogrouped rdd %d: no shuffle fetcher configured on context", c.id)
	}

	result := make(map[K][][]any)
	ensureBuckets := func(k K) [][]any {
		buckets, ok := result[k]
		if !ok {
			buckets = make([][]any, len(c.parents))
			for i := range buckets {
				buckets[i] = []any{}
			}
			result[k] = buckets
		}
		return buckets
	}

	for pi := range c.parents {
		if err := c.ensureMapOutputs(ctx, pi); err != nil {
			return nil, err
		}

		shuffleID := c.shuffleIDs[pi]
		locations := c.ctx.tracker.Locations(shuffleID)

		err := c.ctx.fetcher.Fetch(ctx, shuffleID, rs.idx, locations, func(data []byte) error {
			var entries []wireEntry[K, []any]
			if err := json.Unmarshal(data, &entries); err != nil {
				return &flinterr.SerializationError{Op: "decode cogroup block", Err: err}
			}
			for _, e := range entries {
				buckets := ensureBuckets(e.Key)
				buckets[pi] = append(buckets[pi], e.Combiner...)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return func(yield func(Pair[K, [][]any]) bool) {
		for k, v := range result {
			if !yield(Pair[K, [][]any]{Key: k, Value: v}) {
				return
			}
		}
	}, nil
}

func (c *CoGroupedRdd[K]) Compute(ctx context.Context, sp split.Split) (iter.Seq[Pair[K, [][]any]], error) {
	return c.compute(ctx, sp)
}

func (c *CoGroupedRdd[K]) Iterator(ctx context.Context, sp split.Split) (iter.Seq[Pair[K, [][]any]], error) {
	return c.iterate(ctx, sp)
}

func (c *CoGroupedRdd[K]) IteratorAny(ctx context.Context, sp split.Split) (iter.Seq[any], error) {
	seq, err := c.Iterator(ctx, sp)
	if err != nil {
		return nil, err
	}
	return seqToAny(seq), nil
}
