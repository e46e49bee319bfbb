// Package shuffle implements the block substrate that moves shuffle data
// between workers: an in-memory block store fronted by an HTTP server
// (Manager), and a bounded-concurrency client that retrieves blocks from
// remote workers with retry (Fetcher).
//
// Wire protocol:
//
//	GET /shuffle/{shuffle}/{map}/{reduce}  -> 200 + raw block bytes, or 404
//	GET /                                  -> liveness string
//
// A block's bytes are opaque to this package — internal/rdd owns the JSON
// encoding of the (key, combiner) pairs inside them. shuffle only ever
// stores and serves []byte.
package shuffle
