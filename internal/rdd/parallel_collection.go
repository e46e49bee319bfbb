package rdd

import (
	"context"
	"iter"

	"github.com/dreamware/flint/internal/flinterr"
	"github.com/dreamware/flint/internal/partition"
	"github.com/dreamware/flint/internal/split"
)

// parallelCollectionSplit holds the slice of values assigned to one
// partition of a ParallelCollection.
type parallelCollectionSplit[T any] struct {
	values []T
	idx    int
}

func (s parallelCollectionSplit[T]) Index() int { return s.idx }

// ParallelCollection is the source RDD produced by Parallelize: an
// in-memory slice sliced into numSlices contiguous, near-equal partitions.
type ParallelCollection[T any] struct {
	iterate func(context.Context, split.Split) (iter.Seq[T], error)
	id      int
	splits  []split.Split
}

// Parallelize slices data into numSlices partitions and returns the
// resulting source RDD. The slicing follows a
// floor(i*len/n)..floor((i+1)*len/n) rule which (unlike a naive
// chunk-by-size split) keeps every slice's length within one element of
// every other slice's, regardless of how evenly len(data) divides by
// numSlices.
func Parallelize[T any](ctx *Context, data []T, numSlices int) (*ParallelCollection[T], error) {
	if numSlices < 1 {
		return nil, flinterr.ErrBadSliceCount
	}

	splits := make([]split.Split, numSlices)
	slices := make([][]T, numSlices)
	n := len(data)
	start := 0
	for i := 0; i < numSlices; i++ {
		end := ((i + 1) * n) / numSlices
		chunk := make([]T, end-start)
		copy(chunk, data[start:end])
		slices[i] = chunk
		splits[i] = parallelCollectionSplit[T]{idx: i, values: chunk}
		start = end
	}

	pc := &ParallelCollection[T]{
		id:     ctx.NewRDDID(),
		splits: splits,
	}
	pc.iterate = WithCache(ctx, pc, pc.compute)
	return pc, nil
}

func (p *ParallelCollection[T]) ID() int                 { return p.id }
func (p *ParallelCollection[T]) Splits() []split.Split   { return p.splits }
func (p *ParallelCollection[T]) NumPartitions() int      { return len(p.splits) }
func (p *ParallelCollection[T]) Dependencies() []Dependency { return nil }

func (p *ParallelCollection[T]) Partitioner() (partition.Partitioner, bool) {
	return nil, false
}

func (p *ParallelCollection[T]) compute(_ context.Context, s split.Split) (iter.Seq[T], error) {
	typed := MustSplit[parallelCollectionSplit[T]](s)
	values := typed.values
	return func(yield func(T) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}, nil
}

// Compute implements RDD[T].
func (p *ParallelCollection[T]) Compute(ctx context.Context, s split.Split) (iter.Seq[T], error) {
	return p.compute(ctx, s)
}

// Iterator implements RDD[T].
func (p *ParallelCollection[T]) Iterator(ctx context.Context, s split.Split) (iter.Seq[T], error) {
	return p.iterate(ctx, s)
}

// IteratorAny implements Base.
func (p *ParallelCollection[T]) IteratorAny(ctx context.Context, s split.Split) (iter.Seq[any], error) {
	seq, err := p.Iterator(ctx, s)
	if err != nil {
		return nil, err
	}
	return seqToAny(seq), nil
}
