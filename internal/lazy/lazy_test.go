package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entangled/brei/internal/target"
)

func phony(name string) target.Target { return target.NewPhony(name) }

func TestRun_MemoizesResult(t *testing.T) {
	db := New()
	var calls atomic.Int32
	db.Insert(NewNode([]target.Target{phony("a")}, nil, func(ctx context.Context, _ *Call) (string, error) {
		calls.Add(1)
		return "value", nil
	}))

	for i := 0; i < 3; i++ {
		v, err := db.Run(context.Background(), phony("a"))
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_AtMostOnceUnderConcurrency(t *testing.T) {
	db := New()
	var calls atomic.Int32
	slow := NewNode([]target.Target{phony("slow")}, nil, func(ctx context.Context, _ *Call) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "done", nil
	})
	db.Insert(slow)

	// Many dependents all requiring the same node.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := db.Run(context.Background(), phony("slow"))
			assert.NoError(t, err)
			assert.Equal(t, "done", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_DependenciesResolveFirst(t *testing.T) {
	db := New()
	var order []string
	var mu sync.Mutex
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	db.Insert(NewNode([]target.Target{phony("dep")}, nil, func(ctx context.Context, _ *Call) (string, error) {
		record("dep")
		return "", nil
	}))
	db.Insert(NewNode([]target.Target{phony("top")}, []target.Target{phony("dep")}, func(ctx context.Context, _ *Call) (string, error) {
		record("top")
		return "", nil
	}))

	_, err := db.Run(context.Background(), phony("top"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dep", "top"}, order)
}

func TestRun_DependencyFailurePropagates(t *testing.T) {
	db := New()
	boom := errors.New("boom")
	db.Insert(NewNode([]target.Target{phony("bad")}, nil, func(ctx context.Context, _ *Call) (string, error) {
		return "", boom
	}))
	var ran bool
	db.Insert(NewNode([]target.Target{phony("top")}, []target.Target{phony("bad"), phony("good")}, func(ctx context.Context, _ *Call) (string, error) {
		ran = true
		return "", nil
	}))
	db.Insert(NewNode([]target.Target{phony("good")}, nil, nil))

	_, err := db.Run(context.Background(), phony("top"))
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.False(t, ran, "node with failed dependency must not run")
	assert.Len(t, depErr.Failures, 1)
	assert.Equal(t, boom, depErr.Failures[phony("bad")])
}

func TestRun_FailuresAreMemoized(t *testing.T) {
	db := New()
	var calls atomic.Int32
	db.Insert(NewNode([]target.Target{phony("flaky")}, nil, func(ctx context.Context, _ *Call) (string, error) {
		calls.Add(1)
		return "", errors.New("first and only attempt")
	}))

	_, err1 := db.Run(context.Background(), phony("flaky"))
	_, err2 := db.Run(context.Background(), phony("flaky"))
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRun_MissingTarget(t *testing.T) {
	db := New()
	_, err := db.Run(context.Background(), phony("nowhere"))
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, phony("nowhere"), missing.Target)
}

func TestRun_OnMissingSynthesizesNode(t *testing.T) {
	db := New()
	db.OnMissing = func(tgt target.Target) (*Node, bool) {
		if tgt.IsFile() {
			return NewNode([]target.Target{tgt}, nil, nil), true
		}
		return nil, false
	}

	_, err := db.Run(context.Background(), target.NewFile("exists.txt"))
	require.NoError(t, err)
	// The synthesized node is registered in the index.
	_, ok := db.Lookup(target.NewFile("exists.txt"))
	assert.True(t, ok)

	_, err = db.Run(context.Background(), phony("still-missing"))
	var missing *MissingError
	require.ErrorAs(t, err, &missing)
}

func TestRun_CycleDetected(t *testing.T) {
	db := New()
	db.Insert(NewNode([]target.Target{phony("t1")}, []target.Target{phony("t2")}, nil))
	db.Insert(NewNode([]target.Target{phony("t2")}, []target.Target{phony("t1")}, nil))

	_, err := db.Run(context.Background(), phony("t1"))
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.GreaterOrEqual(t, len(cycle.Chain), 2)
}

func TestRun_SelfCycleThroughAlias(t *testing.T) {
	db := New()
	// One node registered under two targets, requiring itself by alias.
	db.Insert(NewNode(
		[]target.Target{phony("a"), phony("b")},
		[]target.Target{phony("b")},
		nil,
	))

	done := make(chan error, 1)
	go func() {
		_, err := db.Run(context.Background(), phony("a"))
		done <- err
	}()
	select {
	case err := <-done:
		var cycle *CycleError
		require.ErrorAs(t, err, &cycle)
	case <-time.After(2 * time.Second):
		t.Fatal("cycle through alias deadlocked instead of failing")
	}
}

func TestRun_DiamondSharedDependency(t *testing.T) {
	db := New()
	var calls atomic.Int32
	db.Insert(NewNode([]target.Target{phony("base")}, nil, func(ctx context.Context, _ *Call) (string, error) {
		calls.Add(1)
		return "", nil
	}))
	db.Insert(NewNode([]target.Target{phony("left")}, []target.Target{phony("base")}, nil))
	db.Insert(NewNode([]target.Target{phony("right")}, []target.Target{phony("base")}, nil))
	db.Insert(NewNode([]target.Target{phony("top")}, []target.Target{phony("left"), phony("right")}, nil))

	_, err := db.Run(context.Background(), phony("top"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "diamond base must evaluate once")
}

func TestDependencyError_ErrorListsChildren(t *testing.T) {
	err := &DependencyError{Failures: map[target.Target]error{
		phony("b"): errors.New("bad"),
		phony("a"): errors.New("worse"),
	}}
	assert.Equal(t, "#a -> worse\n#b -> bad", err.Error())
}
