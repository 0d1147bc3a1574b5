package lazy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/entangled/brei/internal/target"
)

// MissingError reports a target that has no node in the database and no
// backing file on disk.
type MissingError struct {
	Target target.Target
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing dependency: %s", e.Target)
}

// CycleError reports a dependency cycle. Chain lists the targets in the
// order they were entered, ending with the re-visited target.
type CycleError struct {
	Chain []target.Target
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		parts[i] = t.String()
	}
	return fmt.Sprintf("cycle detected: %s", strings.Join(parts, " -> "))
}

// DependencyError reports that a node did not run because one or more of
// its requirements failed. It carries the child failures keyed by target.
type DependencyError struct {
	Failures map[target.Target]error
}

// Unwrap exposes the child failures so errors.As can find the root cause
// of a failure chain, e.g. the CycleError buried under aggregations.
func (e *DependencyError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

func (e *DependencyError) Error() string {
	keys := make([]target.Target, 0, len(e.Failures))
	for t := range e.Failures {
		keys = append(keys, t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	var sb strings.Builder
	for i, t := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s -> %s", t, e.Failures[t])
	}
	return sb.String()
}
