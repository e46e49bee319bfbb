package rdd

import (
	"context"
	"errors"
)

// Collect pulls every partition of r, in partition order, into a single
// slice.
func Collect[T any](ctx context.Context, r RDD[T]) ([]T, error) {
	var out []T
	for _, s := range r.Splits() {
		seq, err := r.Iterator(ctx, s)
		if err != nil {
			return nil, err
		}
		for v := range seq {
			out = append(out, v)
		}
	}
	return out, nil
}

// Take collects the first n elements of r, computing partitions in order
// and stopping as soon as n elements have been gathered — it never
// computes a partition it doesn't need.
func Take[T any](ctx context.Context, r RDD[T], n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}

	out := make([]T, 0, n)
	for _, s := range r.Splits() {
		if len(out) >= n {
			break
		}
		seq, err := r.Iterator(ctx, s)
		if err != nil {
			return nil, err
		}
		for v := range seq {
			out = append(out, v)
			if len(out) >= n {
				break
			}
		}
	}
	return out, nil
}

// Reduce folds every element of r together with f. f should be associative
// and commutative, since elements are folded in partition-computation
// order, not source order, once more than one partition is involved.
// Reduce returns an error if r has no elements.
func Reduce[T any](ctx context.Context, r RDD[T], f func(T, T) T) (T, error) {
	var (
		acc  T
		has  bool
		zero T
	)

	for _, s := range r.Splits() {
		seq, err := r.Iterator(ctx, s)
		if err != nil {
			return zero, err
		}
		for v := range seq {
			if !has {
				acc = v
				has = true
				continue
			}
			acc = f(acc, v)
		}
	}

	if !has {
		return zero, errEmptyReduce
	}
	return acc, nil
}

var errEmptyReduce = errors.New("reduce: rdd has no elements")
