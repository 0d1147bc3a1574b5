package lazy

import (
	"context"
	"sync"

	"github.com/entangled/brei/internal/target"
)

// Call gives a running thunk access to the evaluation it is part of. Runs
// issued through it stay on the current call chain, so cycle detection sees
// through work a thunk starts on its own behalf.
type Call struct {
	db    *DB
	chain []frame
}

// Run evaluates a target on the current call chain.
func (c *Call) Run(ctx context.Context, t target.Target) (string, error) {
	return c.db.run(ctx, t, c.chain)
}

// RunNode evaluates an unregistered continuation node on the current call
// chain. Its requirements are awaited like any node's.
func (c *Call) RunNode(ctx context.Context, n *Node) (string, error) {
	return n.runCached(ctx, c.db, c.chain)
}

// Thunk produces a node's value. It runs at most once per database
// lifetime, after every requirement has resolved successfully.
type Thunk func(ctx context.Context, call *Call) (string, error)

// Node is a lazily evaluated unit of work registered under one or more
// targets. The lock and the memoization cell together guarantee that the
// thunk is entered at most once; late arrivals observe the memoized result.
type Node struct {
	creates  []target.Target
	requires []target.Target

	mu    sync.Mutex
	done  bool
	value string
	err   error

	thunk Thunk
}

// NewNode constructs a node producing the given targets from the given
// requirements. A nil thunk makes a no-op node that resolves to the empty
// string once its requirements have.
func NewNode(creates, requires []target.Target, thunk Thunk) *Node {
	return &Node{creates: creates, requires: requires, thunk: thunk}
}

// Creates returns the targets this node is registered under.
func (n *Node) Creates() []target.Target { return n.creates }

// Requires returns the targets this node depends on.
func (n *Node) Requires() []target.Target { return n.requires }

// Result returns the memoized outcome. ok is false if the node has not
// completed yet.
func (n *Node) Result() (value string, err error, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value, n.err, n.done
}

// runCached is the per-node synchronization point. The first caller to take
// the lock evaluates; everyone admitted afterwards reads the memo.
func (n *Node) runCached(ctx context.Context, db *DB, chain []frame) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.done {
		return n.value, n.err
	}
	n.value, n.err = n.runAfterDeps(ctx, db, chain)
	n.done = true
	return n.value, n.err
}

// runAfterDeps awaits all requirements in parallel. If any failed, the
// thunk does not run and the failures are aggregated.
func (n *Node) runAfterDeps(ctx context.Context, db *DB, chain []frame) (string, error) {
	if len(n.requires) > 0 {
		errs := make([]error, len(n.requires))
		var wg sync.WaitGroup
		for i, dep := range n.requires {
			wg.Add(1)
			go func(i int, dep target.Target) {
				defer wg.Done()
				_, errs[i] = db.run(ctx, dep, chain)
			}(i, dep)
		}
		wg.Wait()

		failures := map[target.Target]error{}
		for i, err := range errs {
			if err != nil {
				failures[n.requires[i]] = err
			}
		}
		if len(failures) > 0 {
			return "", &DependencyError{Failures: failures}
		}
	}

	if n.thunk == nil {
		return "", nil
	}
	return n.thunk(ctx, &Call{db: db, chain: chain})
}
