// Package lease provides the mutual-exclusion primitive the reaper
// uses to stay at-most-one-running-instance per scope (spec.md §4.F).
// Correctness never depends on the lease alone: every reaper
// transaction re-checks the Hold under a row lock, so a lease failure
// degrades to wasted duplicate work, not a correctness violation.
package lease

import "context"

// Lease grants exclusive ownership of a named resource for as long as
// the returned release func has not been called. Acquire blocks until
// the lease is held or ctx is cancelled.
type Lease interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}
