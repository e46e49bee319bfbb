// Package rdd implements the resilient distributed dataset graph: lazy,
// partitioned, typed collections linked by narrow or shuffle dependencies.
// Nothing in this package launches tasks or schedules work across
// processes — it only describes how a partition's data is produced,
// leaving where it runs to the process environment in internal/env.
package rdd

import (
	"context"
	"fmt"
	"iter"

	"github.com/dreamware/flint/internal/flinterr"
	"github.com/dreamware/flint/internal/partition"
	"github.com/dreamware/flint/internal/split"
)

// Base is the type-erased surface of an RDD: everything the dependency
// graph and the shuffle machinery need that does not depend on the
// element type T. Typed RDD[T] values always also satisfy Base.
type Base interface {
	// ID is an identifier, unique within the RDD's Context, assigned when
	// the RDD was constructed and used to key cache entries.
	ID() int

	// Splits returns the partitions this RDD is divided into, in index
	// order.
	Splits() []split.Split

	// NumPartitions is len(Splits()); RDDs with a Partitioner always
	// have NumPartitions() == Partitioner().NumPartitions().
	NumPartitions() int

	// Dependencies lists the parent RDDs this one is computed from, in
	// the order their data is consumed.
	Dependencies() []Dependency

	// Partitioner returns the Partitioner that determined this RDD's
	// partitioning, if any. Source RDDs and Map return (nil, false);
	// MapValues and FlatMapValues report their parent's Partitioner.
	Partitioner() (partition.Partitioner, bool)

	// IteratorAny is the type-erased counterpart of RDD[T].Iterator,
	// used by cogroup and join to combine RDDs of different element
	// types without a shared generic parameter.
	IteratorAny(ctx context.Context, s split.Split) (iter.Seq[any], error)
}

// RDD is the typed view of a dataset: a lazy sequence of T values per
// partition.
type RDD[T any] interface {
	Base

	// Compute produces the lazy sequence of elements for a single split.
	// Compute panics with *flinterr.SplitTypeMismatch if s was not
	// produced by this RDD.
	Compute(ctx context.Context, s split.Split) (iter.Seq[T], error)

	// Iterator is the entry point callers use to read a split: it wraps
	// Compute with whatever caching policy the RDD was configured with
	// (see WithCache). RDDs that were never wrapped simply delegate to
	// Compute.
	Iterator(ctx context.Context, s split.Split) (iter.Seq[T], error)
}

// Dependency records one edge of the RDD dependency graph.
type Dependency interface {
	// Parent is the upstream RDD this dependency points to.
	Parent() Base
}

// NarrowDependency connects an RDD to a parent it consumes one-to-one
// (each child partition reads exactly one, already-local, parent
// partition). No shuffle is required to satisfy it.
type NarrowDependency struct {
	P Base
}

// Parent implements Dependency.
func (n NarrowDependency) Parent() Base { return n.P }

// ShuffleDependency connects an RDD to a parent whose output must be
// redistributed across the cluster by key before this RDD's partitions can
// be computed.
type ShuffleDependency struct {
	P Base

	// Aggregator is the Aggregator[K, V, C] (CreateCombiner/MergeValue/
	// MergeCombiners) the map side pre-aggregates with before publishing a
	// shuffle block, recorded here as the lineage graph's own copy of it.
	// It is type-erased to any because Dependency is part of the
	// type-erased Base surface; ShuffledRdd and CoGroupedRdd keep their own
	// typed Aggregator for actually running the map/reduce side, this field
	// exists so the dependency tuple matches the data model, not to be
	// invoked from here.
	Aggregator  any
	Partitioner partition.Partitioner
	ShuffleID   int
}

// Parent implements Dependency.
func (s ShuffleDependency) Parent() Base { return s.P }

// MustSplit downcasts a split.Split to the concrete type S, the single
// helper every RDD's Compute method uses to recover its own split kind. It
// panics with *flinterr.SplitTypeMismatch when s was produced by a
// different RDD: a split/RDD mismatch is a fatal programming error, never
// a recoverable one.
func MustSplit[S split.Split](s split.Split) S {
	typed, ok := s.(S)
	if !ok {
		var want S
		panic(&flinterr.SplitTypeMismatch{
			Want: fmt.Sprintf("%T", want),
			Got:  fmt.Sprintf("%T", s),
		})
	}
	return typed
}
