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

type shuffledSplit struct {
	idx int
}

func (s shuffledSplit) Index() int { return s.idx }

// wireEntry is the on-the-wire shape of one (key, combiner) pair inside a
// shuffle block. Reusing encoding/json here keeps the shuffle protocol
// consistent with every other wire exchange in this codebase.
type wireEntry[K, C any] struct {
	Key       K `json:"key"`
	Combiner  C `json:"combiner"`
}

// ShuffledRdd is the RDD produced by CombineByKey: its partitions are
// reduce partitions of a shuffle, each built by fetching every map
// partition's pre-aggregated combiners for that reduce partition and
// folding them together with Aggregator.MergeCombiners.
type ShuffledRdd[K comparable, V, C any] struct {
	ctx       *Context
	parent    RDD[Pair[K, V]]
	agg       Aggregator[K, V, C]
	part      partition.Partitioner
	iterate   func(context.Context, split.Split) (iter.Seq[Pair[K, C]], error)
	id        int
	shuffleID int
	splits    []split.Split

	mapOnce sync.Once
	mapErr  error
}

// NewShuffledRdd builds a ShuffledRdd. Most callers go through CombineByKey,
// GroupByKey or ReduceByKey instead of calling this directly.
func NewShuffledRdd[K comparable, V, C any](ctx *Context, parent RDD[Pair[K, V]], agg Aggregator[K, V, C], part partition.Partitioner) *ShuffledRdd[K, V, C] {
	n := part.NumPartitions()
	splits := make([]split.Split, n)
	for i := range splits {
		splits[i] = shuffledSplit{idx: i}
	}

	s := &ShuffledRdd[K, V, C]{
		ctx:       ctx,
		parent:    parent,
		agg:       agg,
		part:      part,
		id:        ctx.NewRDDID(),
		shuffleID: ctx.NewShuffleID(),
		splits:    splits,
	}
	s.iterate = WithCache(ctx, s, s.compute)
	return s
}

func (s *ShuffledRdd[K, V, C]) ID() int                 { return s.id }
func (s *ShuffledRdd[K, V, C]) Splits() []split.Split   { return s.splits }
func (s *ShuffledRdd[K, V, C]) NumPartitions() int      { return len(s.splits) }
func (s *ShuffledRdd[K, V, C]) Dependencies() []Dependency {
	return []Dependency{ShuffleDependency{P: s.parent, Aggregator: s.agg, Partitioner: s.part, ShuffleID: s.shuffleID}}
}
func (s *ShuffledRdd[K, V, C]) Partitioner() (partition.Partitioner, bool) { return s.part, true }

// ensureMapOutputs computes every parent partition exactly once (the first
// time any reduce partition is requested), pre-aggregating each partition's
// records into per-reduce-partition combiner maps via CreateCombiner and
// MergeValue, then publishes the result to the shuffle store. This is the
// map side of the shuffle; the law Aggregator documents is what justifies
// compute (below) only ever using MergeCombiners once these blocks land.
func (s *ShuffledRdd[K, V, C]) ensureMapOutputs(ctx context.Context) error {
	s.mapOnce.Do(func() {
		if s.ctx.store == nil || s.ctx.tracker == nil {
			s.mapErr = fmt.Errorf("shuffled rdd %d: no shuffle store configured on context", s.id)
			return
		}

		for mi, ps := range s.parent.Splits() {
			if s.ctx.tracker.HasOutput(s.shuffleID, mi) {
				continue
			}

			seq, err := s.parent.Iterator(ctx, ps)
			if err != nil {
				s.mapErr = err
				return
			}

			byReduce := make([]map[K]C, s.part.NumPartitions())
			for i := range byReduce {
				byReduce[i] = make(map[K]C)
			}

			for p := range seq {
				ri := s.part.Partition(p.Key)
				bucket := byReduce[ri]
				if existing, ok := bucket[p.Key]; ok {
					bucket[p.Key] = s.agg.MergeValue(existing, p.Value)
				} else {
					bucket[p.Key] = s.agg.CreateCombiner(p.Value)
				}
			}

			for ri, bucket := range byReduce {
				entries := make([]wireEntry[K, C], 0, len(bucket))
				for k, c := range bucket {
					entries = append(entries, wireEntry[K, C]{Key: k, Combiner: c})
				}
				data, err := json.Marshal(entries)
				if err != nil {
					s.mapErr = &flinterr.SerializationError{Op: "encode shuffle block", Err: err}
					return
				}
				if err := s.ctx.store.Put(s.shuffleID, mi, ri, data); err != nil {
					s.mapErr = err
					return
				}
			}

			s.ctx.tracker.Register(s.shuffleID, mi, s.ctx.store.URI())
		}
	})
	return s.mapErr
}

func (s *ShuffledRdd[K, V, C]) compute(ctx context.Context, sp split.Split) (iter.Seq[Pair[K, C]], error) {
	rs := MustSplit[shuffledSplit](sp)

	if err := s.ensureMapOutputs(ctx); err != nil {
		return nil, err
	}
	if s.ctx.fetcher == nil {
		return nil, fmt.Errorf("shuffled rdd %d: no shuffle fetcher configured on context", s.id)
	}

	result := make(map[K]C)
	locations := s.ctx.tracker.Locations(s.shuffleID)

	err := s.ctx.fetcher.Fetch(ctx, s.shuffleID, rs.idx, locations, func(data []byte) error {
		var entries []wireEntry[K, C]
		if err := json.Unmarshal(data, &entries); err != nil {
			return &flinterr.SerializationError{Op: "decode shuffle block", Err: err}
		}
		for _, e := range entries {
			if existing, ok := result[e.Key]; ok {
				result[e.Key] = s.agg.MergeCombiners(existing, e.Combiner)
			} else {
				result[e.Key] = e.Combiner
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(yield func(Pair[K, C]) bool) {
		for k, c := range result {
			if !yield(Pair[K, C]{Key: k, Value: c}) {
				return
			}
		}
	}, nil
}

func (s *ShuffledRdd[K, V, C]) Compute(ctx context.Context, sp split.Split) (iter.Seq[Pair[K, C]], error) {
	return s.compute(ctx, sp)
}

func (s *ShuffledRdd[K, V, C]) Iterator(ctx context.Context, sp split.Split) (iter.Seq[Pair[K, C]], error) {
	return s.iterate(ctx, sp)
}

func (s *ShuffledRdd[K, V, C]) IteratorAny(ctx context.Context, sp split.Split) (iter.Seq[any], error) {
	seq, err := s.Iterator(ctx, sp)
	if err != nil {
		return nil, err
	}
	return seqToAny(seq), nil
}
