package rdd

import (
	"context"
	"iter"

	"github.com/dreamware/flint/internal/split"
)

// WithCache wraps a Compute function so repeated calls for the same split
// are served from ctx's CacheTracker instead of recomputing. RDD
// constructors call this once, at construction time, to build the function
// their Iterator method delegates to; Compute itself never goes through
// the cache, so re-deriving a cached RDD's lineage (e.g. after a cache
// eviction) still works.
func WithCache[T any](ctx *Context, base Base, compute func(context.Context, split.Split) (iter.Seq[T], error)) func(context.Context, split.Split) (iter.Seq[T], error) {
	if ctx == nil || ctx.cache == nil {
		return compute
	}
	return func(c context.Context, s split.Split) (iter.Seq[T], error) {
		anySeq, err := ctx.cache.GetOrCompute(c, base.ID(), s.Index(), func() (iter.Seq[any], error) {
			seq, err := compute(c, s)
			if err != nil {
				return nil, err
			}
			return seqToAny(seq), nil
		})
		if err != nil {
			return nil, err
		}
		return seqFromAny[T](anySeq), nil
	}
}

func seqToAny[T any](s iter.Seq[T]) iter.Seq[any] {
	return func(yield func(any) bool) {
		for v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

func seqFromAny[T any](s iter.Seq[any]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range s {
			if !yield(v.(T)) {
				return
			}
		}
	}
}
