package program

import (
	"fmt"
	"sort"

	"github.com/entangled/brei/internal/task"
)

// Program is the declared form of a workflow file.
type Program struct {
	Environment map[string]string
	Task        []task.Spec
	Template    map[string]task.Spec
	Call        []Call
	Include     []string
	Runner      map[string]task.Runner
}

// Join selects how a template call multiplexes list-valued arguments.
type Join int

const (
	// JoinInner zips all values pairwise by position, scalars repeating.
	JoinInner Join = iota
	// JoinOuter produces the Cartesian product over all values.
	JoinOuter
)

// Arg is a template-call argument: either a single string or a list.
type Arg struct {
	scalar bool
	values []string
}

// ScalarArg returns a single-valued argument.
func ScalarArg(v string) Arg {
	return Arg{scalar: true, values: []string{v}}
}

// ListArg returns a list-valued argument.
func ListArg(vs []string) Arg {
	return Arg{values: vs}
}

// IsScalar reports whether the argument is a single string.
func (a Arg) IsScalar() bool { return a.scalar }

// Values returns the argument's values; a scalar yields one element.
func (a Arg) Values() []string { return a.values }

// Call is a directive to expand a named template against argument values.
type Call struct {
	Template string
	Args     map[string]Arg
	Collect  string
	Join     Join
}

// AllArgs yields one substitution mapping per expansion, in a
// deterministic order. With only scalar arguments there is exactly one;
// an inner join zips lists by position stopping at the shortest; an outer
// join walks the Cartesian product.
func (c Call) AllArgs() []map[string]string {
	keys := make([]string, 0, len(c.Args))
	allScalar := true
	for k, a := range c.Args {
		keys = append(keys, k)
		if !a.IsScalar() {
			allScalar = false
		}
	}
	sort.Strings(keys)

	if allScalar {
		m := make(map[string]string, len(keys))
		for _, k := range keys {
			m[k] = c.Args[k].Values()[0]
		}
		return []map[string]string{m}
	}

	if c.Join == JoinInner {
		n := -1
		for _, k := range keys {
			if a := c.Args[k]; !a.IsScalar() {
				if n < 0 || len(a.Values()) < n {
					n = len(a.Values())
				}
			}
		}
		out := make([]map[string]string, 0, n)
		for i := 0; i < n; i++ {
			m := make(map[string]string, len(keys))
			for _, k := range keys {
				if a := c.Args[k]; a.IsScalar() {
					m[k] = a.Values()[0]
				} else {
					m[k] = a.Values()[i]
				}
			}
			out = append(out, m)
		}
		return out
	}

	// Cartesian product, first key varying slowest.
	out := []map[string]string{{}}
	for _, k := range keys {
		var next []map[string]string
		for _, base := range out {
			for _, v := range c.Args[k].Values() {
				m := make(map[string]string, len(keys))
				for bk, bv := range base {
					m[bk] = bv
				}
				m[k] = v
				next = append(next, m)
			}
		}
		out = next
	}
	return out
}

// UserError is a resolver failure with a human-readable message.
type UserError struct {
	Msg string
}

func (e *UserError) Error() string { return e.Msg }

// MissingIncludeError reports an include whose resolved path does not exist.
type MissingIncludeError struct {
	Path string
}

func (e *MissingIncludeError) Error() string {
	return fmt.Sprintf("include `%s` not found", e.Path)
}

// MissingTemplateError reports a call to a template that no program file
// declared.
type MissingTemplateError struct {
	Name string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("template `%s` not found", e.Name)
}

// ConfigError reports input data that does not match the program schema.
type ConfigError struct {
	Expected string
	Got      any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("expected %s, got: %v", e.Expected, e.Got)
}
