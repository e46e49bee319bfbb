package rdd

import (
	"encoding/json"
	"fmt"

	"github.com/dreamware/flint/internal/partition"
)

// CombineByKey is the general-purpose shuffle operation every other
// by-key combinator in this file reduces to: it partitions r by key using
// part, pre-aggregating map-side with createCombiner/mergeValue and
// finishing reduce-side with mergeCombiners.
func CombineByKey[K comparable, V, C any](
	ctx *Context,
	r RDD[Pair[K, V]],
	createCombiner func(V) C,
	mergeValue func(C, V) C,
	mergeCombiners func(C, C) C,
	part partition.Partitioner,
) RDD[Pair[K, C]] {
	agg := Aggregator[K, V, C]{
		CreateCombiner: createCombiner,
		MergeValue:     mergeValue,
		MergeCombiners: mergeCombiners,
	}
	return NewShuffledRdd[K, V, C](ctx, r, agg, part)
}

// GroupByKeyUsingPartitioner collects every value for each key into a
// slice, partitioned by part.
func GroupByKeyUsingPartitioner[K comparable, V any](ctx *Context, r RDD[Pair[K, V]], part partition.Partitioner) RDD[Pair[K, []V]] {
	return CombineByKey(
		ctx, r,
		func(v V) []V { return []V{v} },
		func(c []V, v V) []V { return append(c, v) },
		func(a, b []V) []V { return append(a, b...) },
		part,
	)
}

// GroupByKey collects every value for each key into a slice, repartitioning
// r's keys into numSplits partitions with a Hash partitioner.
func GroupByKey[K comparable, V any](ctx *Context, r RDD[Pair[K, V]], numSplits int) (RDD[Pair[K, []V]], error) {
	part, err := partition.NewHash(numSplits)
	if err != nil {
		return nil, err
	}
	return GroupByKeyUsingPartitioner[K, V](ctx, r, part), nil
}

// ReduceByKeyUsingPartitioner folds every value for each key together with
// f, partitioned by part. f must be associative and commutative: it runs
// both map-side (to pre-aggregate within a partition) and reduce-side (to
// fold the partial results together), exactly like Aggregator's law
// requires.
func ReduceByKeyUsingPartitioner[K comparable, V any](ctx *Context, r RDD[Pair[K, V]], f func(V, V) V, part partition.Partitioner) RDD[Pair[K, V]] {
	return CombineByKey(
		ctx, r,
		func(v V) V { return v },
		f,
		f,
		part,
	)
}

// ReduceByKey folds every value for each key together with f, repartitioning
// r's keys into numSplits partitions with a Hash partitioner.
func ReduceByKey[K comparable, V any](ctx *Context, r RDD[Pair[K, V]], f func(V, V) V, numSplits int) (RDD[Pair[K, V]], error) {
	part, err := partition.NewHash(numSplits)
	if err != nil {
		return nil, err
	}
	return ReduceByKeyUsingPartitioner[K, V](ctx, r, f, part), nil
}

// CoGroup groups the values r and other share per key into a
// Pair[K, ([]V, []W)], one entry per key seen in either input.
func CoGroup[K comparable, V, W any](ctx *Context, r RDD[Pair[K, V]], other RDD[Pair[K, W]], part partition.Partitioner) (RDD[Pair[K, Pair[[]V, []W]]], error) {
	grouped := NewCoGroupedRdd[K](ctx, part, r, other)
	return MapValues[K, [][]any, Pair[[]V, []W]](ctx, liftCogroupKey[K](grouped), func(buckets [][]any) Pair[[]V, []W] {
		vs, err := convertSlice[V](buckets[0])
		if err != nil {
			panic(fmt.Errorf("cogroup: left values: %w", err))
		}
		ws, err := convertSlice[W](buckets[1])
		if err != nil {
			panic(fmt.Errorf("cogroup: right values: %w", err))
		}
		return Pair[[]V, []W]{Key: vs, Value: ws}
	}), nil
}

// Join computes the inner join of r and other on their shared key,
// producing one Pair[K, Pair[V, W]] per (left value, right value)
// combination for each key present in both inputs — the cartesian product
// of each key's two value buckets, exactly as the original combinator
// defines it.
func Join[K comparable, V, W any](ctx *Context, r RDD[Pair[K, V]], other RDD[Pair[K, W]], numSplits int) (RDD[Pair[K, Pair[V, W]]], error) {
	part, err := partition.NewHash(numSplits)
	if err != nil {
		return nil, err
	}
	grouped, err := CoGroup[K, V, W](ctx, r, other, part)
	if err != nil {
		return nil, err
	}
	return FlatMapValues[K, Pair[[]V, []W], Pair[V, W]](ctx, grouped, func(vw Pair[[]V, []W]) []Pair[V, W] {
		out := make([]Pair[V, W], 0, len(vw.Key)*len(vw.Value))
		for _, v := range vw.Key {
			for _, w := range vw.Value {
				out = append(out, Pair[V, W]{Key: v, Value: w})
			}
		}
		return out
	}), nil
}

// liftCogroupKey adapts a *CoGroupedRdd[K] (an RDD[Pair[K, [][]any]]) to
// the RDD[Pair[K, [][]any]] interface MapValues expects; CoGroupedRdd
// already satisfies it, this exists purely to spell the type at the call
// site explicitly.
func liftCogroupKey[K comparable](r *CoGroupedRdd[K]) RDD[Pair[K, [][]any]] {
	return r
}

// convertSlice reconstructs a []T from the []any a CoGroupedRdd produces.
// Every value in a cogroup bucket has already made a round trip through
// JSON on the shuffle wire, so a value's concrete Go type (e.g. int) may
// have decoded into a generic JSON type (e.g. float64); convertSlice
// re-encodes and decodes each element into T to recover it, a direct
// consequence of the type-erased fan-in join/cogroup requires (see
// CoGroupedRdd, which stores values as []any precisely because it cannot
// know its parents' value types).
func convertSlice[T any](values []any) ([]T, error) {
	out := make([]T, len(values))
	for i, v := range values {
		if t, ok := v.(T); ok {
			out[i] = t
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
