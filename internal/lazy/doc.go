// Package lazy implements the goal-addressed node database at the core of
// the engine. Every node owns a lock, a memoization cell, and a thunk; the
// database resolves a target to its node and drives evaluation so that each
// node computes at most once, concurrent requestors share the memoized
// result, dependencies are awaited before a node runs, and cycles are
// detected on the call chain instead of deadlocking.
package lazy
