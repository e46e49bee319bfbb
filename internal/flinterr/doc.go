// Package flinterr defines the error taxonomy shared across flint's
// packages: configuration errors, construction-time invariant violations,
// and the transient shuffle-fetch failures the scheduler is expected to
// observe and retry around.
package flinterr
