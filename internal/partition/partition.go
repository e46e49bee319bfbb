// Package partition implements the Partitioner contract: a pluggable
// function that assigns keys to one of a fixed number of partitions,
// consistently across every process in the cluster.
package partition

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/dreamware/flint/internal/flinterr"
)

// Partitioner decides which of its NumPartitions() buckets a key falls
// into. Implementations must be deterministic: the same key, hashed on any
// worker in the cluster, must land in the same partition every time.
type Partitioner interface {
	// NumPartitions returns the fixed number of partitions this
	// Partitioner divides its input into. Always >= 1.
	NumPartitions() int

	// Partition returns the partition index for key, in
	// [0, NumPartitions()).
	Partition(key any) int

	// Equals reports whether other is a Partitioner of the same kind and
	// configuration as this one. Two ShuffledRdds may only share a
	// narrow dependency when their partitioners are Equals.
	Equals(other Partitioner) bool
}

// Hash is the default Partitioner: a stable, non-cryptographic 64-bit hash
// of the key (strings and byte slices as they are, any other key by its JSON
// encoding; see hashKey), reduced modulo the partition count. Using the
// JSON encoding (rather than a Go-specific hash of the key's memory
// representation) keeps Partition deterministic across process restarts and
// across the driver/worker boundary, where keys travel as JSON anyway (see
// internal/shuffle's wire format).
type Hash struct {
	partitions int
}

// NewHash constructs a Hash partitioner with the given number of
// partitions. It fails if partitions is less than 1.
func NewHash(partitions int) (*Hash, error) {
	if partitions < 1 {
		return nil, flinterr.ErrPartitionerArity
	}
	return &Hash{partitions: partitions}, nil
}

// NumPartitions implements Partitioner.
func (h *Hash) NumPartitions() int { return h.partitions }

// Partition implements Partitioner.
func (h *Hash) Partition(key any) int {
	return int(hashKey(key) % uint64(h.partitions))
}

// Equals implements Partitioner. Two Hash partitioners are equal when they
// divide their input into the same number of partitions.
func (h *Hash) Equals(other Partitioner) bool {
	o, ok := other.(*Hash)
	if !ok {
		return false
	}
	return o.partitions == h.partitions
}

// hashKey reduces an arbitrary comparable key to a stable 64-bit hash. Keys
// that are already strings or byte slices are hashed directly; everything
// else is JSON-encoded first. A key that cannot be JSON-encoded is hashed
// via its fmt.Sprintf("%#v", ...) representation as a last resort, so
// Partition never panics on an unexpected key type.
func hashKey(key any) uint64 {
	switch k := key.(type) {
	case string:
		return xxhash.Sum64String(k)
	case []byte:
		return xxhash.Sum64(k)
	}

	if b, err := json.Marshal(key); err == nil {
		return xxhash.Sum64(b)
	}
	return xxhash.Sum64String(fmt.Sprintf("%#v", key))
}
