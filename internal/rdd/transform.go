package rdd

import (
	"context"
	"iter"

	"github.com/dreamware/flint/internal/partition"
	"github.com/dreamware/flint/internal/split"
)

// narrowSplit is the split type shared by every one-to-one transform in
// this file: it just remembers which of the parent's splits it mirrors.
type narrowSplit struct {
	parent split.Split
	idx    int
}

func (s narrowSplit) Index() int { return s.idx }

func narrowSplits(parent Base) []split.Split {
	ps := parent.Splits()
	out := make([]split.Split, len(ps))
	for i, p := range ps {
		out[i] = narrowSplit{idx: i, parent: p}
	}
	return out
}

// mappedRDD is the narrow RDD produced by Map: one output element per input
// element, order preserved.
type mappedRDD[T, U any] struct {
	parent  RDD[T]
	f       func(T) U
	iterate func(context.Context, split.Split) (iter.Seq[U], error)
	id      int
	splits  []split.Split
}

// Map applies f to every element of r, preserving partitioning and
// per-partition order. It is a narrow transform: no shuffle is required.
func Map[T, U any](ctx *Context, r RDD[T], f func(T) U) RDD[U] {
	m := &mappedRDD[T, U]{
		parent: r,
		f:      f,
		id:     ctx.NewRDDID(),
		splits: narrowSplits(r),
	}
	m.iterate = WithCache(ctx, m, m.compute)
	return m
}

func (m *mappedRDD[T, U]) ID() int               { return m.id }
func (m *mappedRDD[T, U]) Splits() []split.Split { return m.splits }
func (m *mappedRDD[T, U]) NumPartitions() int    { return len(m.splits) }
func (m *mappedRDD[T, U]) Dependencies() []Dependency {
	return []Dependency{NarrowDependency{P: m.parent}}
}
func (m *mappedRDD[T, U]) Partitioner() (partition.Partitioner, bool) { return nil, false }

func (m *mappedRDD[T, U]) compute(ctx context.Context, s split.Split) (iter.Seq[U], error) {
	ns := MustSplit[narrowSplit](s)
	parentSeq, err := m.parent.Iterator(ctx, ns.parent)
	if err != nil {
		return nil, err
	}
	f := m.f
	return func(yield func(U) bool) {
		for v := range parentSeq {
			if !yield(f(v)) {
				return
			}
		}
	}, nil
}

func (m *mappedRDD[T, U]) Compute(ctx context.Context, s split.Split) (iter.Seq[U], error) {
	return m.compute(ctx, s)
}

func (m *mappedRDD[T, U]) Iterator(ctx context.Context, s split.Split) (iter.Seq[U], error) {
	return m.iterate(ctx, s)
}

func (m *mappedRDD[T, U]) IteratorAny(ctx context.Context, s split.Split) (iter.Seq[any], error) {
	seq, err := m.Iterator(ctx, s)
	if err != nil {
		return nil, err
	}
	return seqToAny(seq), nil
}

// Pair is the (key, value) element type every pair-RDD operation in this
// package produces and consumes.
type Pair[K, V any] struct {
	Key   K
	Value V
}

// AnyKey and AnyValue let cogroup and join inspect a Pair's key and value
// without sharing a generic parameter with the RDD that produced it; see
// Base.IteratorAny.
func (p Pair[K, V]) AnyKey() any   { return p.Key }
func (p Pair[K, V]) AnyValue() any { return p.Value }

// mappedValuesRDD is the narrow RDD produced by MapValues: keys pass
// through unchanged, values are transformed by f.
type mappedValuesRDD[K comparable, V, U any] struct {
	parent  RDD[Pair[K, V]]
	f       func(V) U
	iterate func(context.Context, split.Split) (iter.Seq[Pair[K, U]], error)
	id      int
	splits  []split.Split
}

// MapValues transforms only the value half of each (key, value) pair,
// preserving the parent's partitioner (the keys, and therefore the
// partition each record belongs to, never change).
func MapValues[K comparable, V, U any](ctx *Context, r RDD[Pair[K, V]], f func(V) U) RDD[Pair[K, U]] {
	m := &mappedValuesRDD[K, V, U]{
		parent: r,
		f:      f,
		id:     ctx.NewRDDID(),
		splits: narrowSplits(r),
	}
	m.iterate = WithCache(ctx, m, m.compute)
	return m
}

func (m *mappedValuesRDD[K, V, U]) ID() int               { return m.id }
func (m *mappedValuesRDD[K, V, U]) Splits() []split.Split { return m.splits }
func (m *mappedValuesRDD[K, V, U]) NumPartitions() int    { return len(m.splits) }
func (m *mappedValuesRDD[K, V, U]) Dependencies() []Dependency {
	return []Dependency{NarrowDependency{P: m.parent}}
}
func (m *mappedValuesRDD[K, V, U]) Partitioner() (partition.Partitioner, bool) {
	return m.parent.Partitioner()
}

func (m *mappedValuesRDD[K, V, U]) compute(ctx context.Context, s split.Split) (iter.Seq[Pair[K, U]], error) {
	ns := MustSplit[narrowSplit](s)
	parentSeq, err := m.parent.Iterator(ctx, ns.parent)
	if err != nil {
		return nil, err
	}
	f := m.f
	return func(yield func(Pair[K, U]) bool) {
		for p := range parentSeq {
			if !yield(Pair[K, U]{Key: p.Key, Value: f(p.Value)}) {
				return
			}
		}
	}, nil
}

func (m *mappedValuesRDD[K, V, U]) Compute(ctx context.Context, s split.Split) (iter.Seq[Pair[K, U]], error) {
	return m.compute(ctx, s)
}

func (m *mappedValuesRDD[K, V, U]) Iterator(ctx context.Context, s split.Split) (iter.Seq[Pair[K, U]], error) {
	return m.iterate(ctx, s)
}

func (m *mappedValuesRDD[K, V, U]) IteratorAny(ctx context.Context, s split.Split) (iter.Seq[any], error) {
	seq, err := m.Iterator(ctx, s)
	if err != nil {
		return nil, err
	}
	return seqToAny(seq), nil
}

// flatMappedValuesRDD is the narrow RDD produced by FlatMapValues: each
// value expands to zero or more output values, keys pass through
// unchanged, per-record output order preserved.
type flatMappedValuesRDD[K comparable, V, U any] struct {
	parent  RDD[Pair[K, V]]
	f       func(V) []U
	iterate func(context.Context, split.Split) (iter.Seq[Pair[K, U]], error)
	id      int
	splits  []split.Split
}

// FlatMapValues expands each value into zero or more output values via f,
// preserving keys and the parent's partitioner.
func FlatMapValues[K comparable, V, U any](ctx *Context, r RDD[Pair[K, V]], f func(V) []U) RDD[Pair[K, U]] {
	m := &flatMappedValuesRDD[K, V, U]{
		parent: r,
		f:      f,
		id:     ctx.NewRDDID(),
		splits: narrowSplits(r),
	}
	m.iterate = WithCache(ctx, m, m.compute)
	return m
}

func (m *flatMappedValuesRDD[K, V, U]) ID() int               { return m.id }
func (m *flatMappedValuesRDD[K, V, U]) Splits() []split.Split { return m.splits }
func (m *flatMappedValuesRDD[K, V, U]) NumPartitions() int    { return len(m.splits) }
func (m *flatMappedValuesRDD[K, V, U]) Dependencies() []Dependency {
	return []Dependency{NarrowDependency{P: m.parent}}
}
func (m *flatMappedValuesRDD[K, V, U]) Partitioner() (partition.Partitioner, bool) {
	return m.parent.Partitioner()
}

func (m *flatMappedValuesRDD[K, V, U]) compute(ctx context.Context, s split.Split) (iter.Seq[Pair[K, U]], error) {
	ns := MustSplit[narrowSplit](s)
	parentSeq, err := m.parent.Iterator(ctx, ns.parent)
	if err != nil {
		return nil, err
	}
	f := m.f
	return func(yield func(Pair[K, U]) bool) {
		for p := range parentSeq {
			for _, u := range f(p.Value) {
				if !yield(Pair[K, U]{Key: p.Key, Value: u}) {
					return
				}
			}
		}
	}, nil
}

func (m *flatMappedValuesRDD[K, V, U]) Compute(ctx context.Context, s split.Split) (iter.Seq[Pair[K, U]], error) {
	return m.compute(ctx, s)
}

func (m *flatMappedValuesRDD[K, V, U]) Iterator(ctx context.Context, s split.Split) (iter.Seq[Pair[K, U]], error) {
	return m.iterate(ctx, s)
}

func (m *flatMappedValuesRDD[K, V, U]) IteratorAny(ctx context.Context, s split.Split) (iter.Seq[any], error) {
	seq, err := m.Iterator(ctx, s)
	if err != nil {
		return nil, err
	}
	return seqToAny(seq), nil
}
