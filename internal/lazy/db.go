package lazy

import (
	"context"
	"sync"

	"github.com/entangled/brei/internal/target"
)

// frame is one entry of the in-flight call chain used for cycle detection.
// The chain is per call path, not global; parallel chains never interfere.
type frame struct {
	t target.Target
	n *Node
}

// DB is the goal-addressed node database. It is append-mostly while a
// program is being resolved and effectively read-only during Run; node
// memoization is the only mutation afterwards.
type DB struct {
	mu    sync.Mutex
	nodes []*Node
	index map[target.Target]*Node

	// OnMissing, when set, synthesizes a node for a target that has no
	// registered producer. Returning false yields a MissingError.
	OnMissing func(t target.Target) (*Node, bool)
}

// New returns an empty database.
func New() *DB {
	return &DB{index: make(map[target.Target]*Node)}
}

// Insert registers a node under each of its created targets. A later
// insert for an already-claimed target takes over that target.
func (db *DB) Insert(n *Node) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nodes = append(db.nodes, n)
	for _, t := range n.creates {
		db.index[t] = n
	}
}

// Lookup returns the node registered under a target, if any.
func (db *DB) Lookup(t target.Target) (*Node, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	n, ok := db.index[t]
	return n, ok
}

// Nodes returns all registered nodes in insertion order.
func (db *DB) Nodes() []*Node {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*Node(nil), db.nodes...)
}

// Run evaluates the node owning the target and blocks until its result is
// memoized. Subsequent and concurrent calls share the same evaluation.
func (db *DB) Run(ctx context.Context, t target.Target) (string, error) {
	return db.run(ctx, t, nil)
}

func (db *DB) run(ctx context.Context, t target.Target, chain []frame) (string, error) {
	node, err := db.resolve(t)
	if err != nil {
		return "", err
	}

	// Re-entry on a node already on this call chain is a cycle. Comparing
	// nodes rather than targets also catches re-entry through an alias of
	// the same node.
	for _, f := range chain {
		if f.n == node {
			cycle := make([]target.Target, 0, len(chain)+1)
			for _, g := range chain {
				cycle = append(cycle, g.t)
			}
			return "", &CycleError{Chain: append(cycle, t)}
		}
	}

	next := make([]frame, len(chain)+1)
	copy(next, chain)
	next[len(chain)] = frame{t: t, n: node}
	return node.runCached(ctx, db, next)
}

// resolve finds or synthesizes the node for a target.
func (db *DB) resolve(t target.Target) (*Node, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if n, ok := db.index[t]; ok {
		return n, nil
	}
	if db.OnMissing != nil {
		if n, ok := db.OnMissing(t); ok {
			db.nodes = append(db.nodes, n)
			for _, c := range n.creates {
				db.index[c] = n
			}
			return n, nil
		}
	}
	return nil, &MissingError{Target: t}
}
