package task

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/entangled/brei/internal/lazy"
	"github.com/entangled/brei/internal/target"
	"github.com/entangled/brei/internal/tmpl"
)

// Error is the failure of a task that ran but did not achieve its goals, or
// could not be executed as declared.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// DB is the node database extended with everything tasks need at run time:
// the runner table, the optional subprocess throttle, and the session-wide
// force flag.
type DB struct {
	*lazy.DB
	Runners  map[string]Runner
	Throttle *semaphore.Weighted
	ForceRun bool
}

// NewDB returns a task database with the default runner table. Targets
// without a registered node fall back to pre-existing files on disk.
func NewDB() *DB {
	db := &DB{
		DB:      lazy.New(),
		Runners: DefaultRunners(),
	}
	db.OnMissing = func(t target.Target) (*lazy.Node, bool) {
		if t.IsFile() {
			if _, err := os.Stat(t.Path()); err == nil {
				return lazy.NewNode([]target.Target{t}, nil, nil), true
			}
		}
		return nil, false
	}
	return db
}

// Environment returns a substitution view over the database: each resolved
// variable node contributes its memoized string.
func (db *DB) Environment() tmpl.Env {
	return envView{db}
}

type envView struct {
	db *DB
}

func (e envView) Lookup(name string) (string, bool) {
	n, ok := e.db.Lookup(target.NewVariable(name))
	if !ok {
		return "", false
	}
	value, err, done := n.Result()
	if !done || err != nil {
		return "", false
	}
	return value, true
}

// IsResolvable reports whether every placeholder in the given strings has a
// variable node in the database.
func (db *DB) IsResolvable(strs []string) bool {
	for _, v := range tmpl.GatherList(strs) {
		if _, ok := db.Lookup(target.NewVariable(v)); !ok {
			return false
		}
	}
	return true
}

// ResolveString runs the variables referenced by s and substitutes them in.
func (db *DB) ResolveString(ctx context.Context, s string) (string, error) {
	for _, v := range tmpl.Gather(s) {
		if _, err := db.Run(ctx, target.NewVariable(v)); err != nil {
			return "", err
		}
	}
	return tmpl.Substitute(s, db.Environment()), nil
}

// ResolveSpec runs every registered variable a spec references and returns
// the substituted spec. Variables without a node, and variables whose
// evaluation failed, keep their placeholders literal; the failure resurfaces
// as a dependency failure when the task runs.
func (db *DB) ResolveSpec(ctx context.Context, s Spec) Spec {
	for _, v := range s.GatherArgs() {
		vt := target.NewVariable(v)
		if _, ok := db.Lookup(vt); !ok {
			continue
		}
		_, _ = db.Run(ctx, vt)
	}
	return s.Substitute(db.Environment())
}

// AddVariable registers an environment variable as a lazy node. Its
// dependencies are the variables its template references; its memoized
// value is the substituted string.
func (db *DB) AddVariable(name, template string) {
	ids := tmpl.Gather(template)
	requires := make([]target.Target, 0, len(ids))
	for _, v := range ids {
		requires = append(requires, target.NewVariable(v))
	}
	db.Insert(lazy.NewNode(
		[]target.Target{target.NewVariable(name)},
		requires,
		func(ctx context.Context, _ *lazy.Call) (string, error) {
			return tmpl.Substitute(template, db.Environment()), nil
		},
	))
}

// AddTask registers a task node. The spec's target strings must be free of
// placeholders by now; its other fields may still reference variables,
// which become dependencies and are substituted when the task runs.
func (db *DB) AddTask(spec Spec) error {
	if spec.Stdout != "" && target.FromString(spec.Stdout).IsPhony() {
		return &Error{Message: fmt.Sprintf("task stdout cannot be a phony target: %s", spec.Stdout)}
	}

	allTargets := spec.AllTargets()
	creates := make([]target.Target, 0, len(allTargets))
	for _, t := range allTargets {
		creates = append(creates, target.FromString(t))
	}
	// Dependencies already free of placeholders are declared up front;
	// templated ones only become addressable after substitution and are
	// awaited by the continuation below. Referenced variables are
	// dependencies either way.
	var requires []target.Target
	for _, d := range spec.AllDependencies() {
		if len(tmpl.Gather(d)) == 0 {
			requires = append(requires, target.FromString(d))
		}
	}
	for _, v := range spec.GatherArgs() {
		requires = append(requires, target.NewVariable(v))
	}

	db.Insert(lazy.NewNode(creates, requires, func(ctx context.Context, call *lazy.Call) (string, error) {
		// All referenced variables are memoized by now; concretize the
		// spec, then hand over to a continuation node carrying the real
		// file and phony dependencies.
		bound, err := bind(spec.Substitute(db.Environment()))
		if err != nil {
			return "", err
		}
		return call.RunNode(ctx, lazy.NewNode(bound.creates, bound.requires,
			func(ctx context.Context, _ *lazy.Call) (string, error) {
				return bound.run(ctx, db)
			}))
	}))
	return nil
}

// Task is a fully resolved, runnable unit of work.
type Task struct {
	creates  []target.Target
	requires []target.Target

	name        string
	runner      string
	path        string
	script      string
	stdin       *target.Target
	stdout      *target.Target
	description string
	force       bool
}

// bind turns a placeholder-free spec into a Task, parsing all target
// strings into their tagged form.
func bind(spec Spec) (*Task, error) {
	t := &Task{
		name:        spec.Name,
		runner:      spec.Runner,
		path:        spec.Path,
		script:      spec.Script,
		description: spec.Description,
		force:       spec.Force,
	}
	for _, s := range spec.AllTargets() {
		t.creates = append(t.creates, target.FromString(s))
	}
	for _, s := range spec.AllDependencies() {
		t.requires = append(t.requires, target.FromString(s))
	}
	if spec.Stdin != "" {
		tgt := target.FromString(spec.Stdin)
		if tgt.IsPhony() {
			return nil, &Error{Message: fmt.Sprintf("task stdin cannot be a phony target: %s", spec.Stdin)}
		}
		t.stdin = &tgt
	}
	if spec.Stdout != "" {
		tgt := target.FromString(spec.Stdout)
		if tgt.IsPhony() {
			return nil, &Error{Message: fmt.Sprintf("task stdout cannot be a phony target: %s", spec.Stdout)}
		}
		t.stdout = &tgt
	}
	return t, nil
}

// targetPaths yields the file targets of the task.
func (t *Task) targetPaths() []string {
	var paths []string
	for _, c := range t.creates {
		if c.IsFile() {
			paths = append(paths, c.Path())
		}
	}
	return paths
}

// dependencyPaths yields the file dependencies of the task.
func (t *Task) dependencyPaths() []string {
	var paths []string
	for _, r := range t.requires {
		if r.IsFile() {
			paths = append(paths, r.Path())
		}
	}
	return paths
}

// alwaysRun reports whether freshness is moot: forced tasks and tasks
// without file targets have nothing to compare.
func (t *Task) alwaysRun() bool {
	return t.force || len(t.targetPaths()) == 0
}

// needsRun decides staleness: a missing target, or any target older than
// any file dependency, means the task must run.
func (t *Task) needsRun() bool {
	targets := t.targetPaths()
	for _, p := range targets {
		if _, ok := modTime(p); !ok {
			return true
		}
	}
	for _, tp := range targets {
		tm, _ := modTime(tp)
		for _, dp := range t.dependencyPaths() {
			if dm, ok := modTime(dp); ok && tm.Before(dm) {
				return true
			}
		}
	}
	return false
}

// banner is the human-readable line logged when the task actually runs.
func (t *Task) banner() string {
	if t.description != "" {
		return t.description
	}
	if t.name != "" {
		return "#" + t.name
	}
	var targets string
	for i, c := range t.creates {
		if i > 0 {
			targets += " "
		}
		targets += c.String()
	}
	return "creating " + targets
}
