package rdd

// Aggregator bundles the three functions a combine-by-key operation needs
// to pre-aggregate map-side and finish reduce-side:
//
//   - CreateCombiner(v) seeds a new combiner C from the first value seen
//     for a key in a partition.
//   - MergeValue(c, v) folds one more value into an existing combiner.
//   - MergeCombiners(c1, c2) merges two combiners for the same key, used
//     to fold map-side partial results together on the reduce side.
//
// The three must agree on one law: MergeCombiners(CreateCombiner(v1),
// CreateCombiner(v2)) must equal the combiner obtained by folding v2 into
// CreateCombiner(v1) with MergeValue, for any order of v1, v2. That law is
// what lets ShuffledRdd use MergeCombiners exclusively on the reduce side
// (see shuffled.go) — the map side has already folded every value for a
// key within a partition down to one combiner via CreateCombiner/MergeValue
// before the shuffle ever serializes it.
type Aggregator[K comparable, V, C any] struct {
	CreateCombiner func(V) C
	MergeValue     func(C, V) C
	MergeCombiners func(C, C) C
}
