package target

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// Kind discriminates the three target variants.
type Kind int

const (
	// File is a path on disk, produced or consumed by a task.
	File Kind = iota
	// Phony is a named target with no file backing.
	Phony
	// Variable is a reference to a lazily evaluated variable.
	Variable
)

// Target is a tagged value identifying a node in the database. Targets are
// comparable and used directly as map keys; file paths are normalized on
// construction so that equivalent spellings compare equal.
type Target struct {
	kind Kind
	name string
}

var variableRe = regexp.MustCompile(`^var\(([^\s()]+)\)$`)

// FromString parses the textual target grammar: a leading `#` makes a phony
// target, a `var(name)` form makes a variable, anything else is a file path.
func FromString(s string) Target {
	if len(s) > 0 && s[0] == '#' {
		return NewPhony(s[1:])
	}
	if m := variableRe.FindStringSubmatch(s); m != nil {
		return NewVariable(m[1])
	}
	return NewFile(s)
}

// NewFile returns a file target for the given path, cleaned to its
// canonical form. Relative paths stay relative and absolute paths stay
// absolute; one is never rewritten into the other.
func NewFile(path string) Target {
	return Target{kind: File, name: normalize(path)}
}

// NewPhony returns a phony target with the given name.
func NewPhony(name string) Target {
	return Target{kind: Phony, name: name}
}

// NewVariable returns a variable target for the given identifier.
func NewVariable(name string) Target {
	return Target{kind: Variable, name: name}
}

// Kind reports which variant this target is.
func (t Target) Kind() Kind { return t.kind }

// Name returns the phony name, variable identifier, or normalized file path.
func (t Target) Name() string { return t.name }

// Path returns the file path of a file target. It panics on other kinds.
func (t Target) Path() string {
	if t.kind != File {
		panic(fmt.Sprintf("target %s is not a file", t))
	}
	return t.name
}

// IsFile reports whether the target is a file path.
func (t Target) IsFile() bool { return t.kind == File }

// IsPhony reports whether the target is a phony name.
func (t Target) IsPhony() bool { return t.kind == Phony }

// IsVariable reports whether the target is a variable reference.
func (t Target) IsVariable() bool { return t.kind == Variable }

// String renders the target back into its surface syntax.
func (t Target) String() string {
	switch t.kind {
	case Phony:
		return "#" + t.name
	case Variable:
		return fmt.Sprintf("var(%s)", t.name)
	default:
		return t.name
	}
}

// normalize cleans a path for use as a comparison key. Absolute paths stay
// absolute; relative paths lose any leading `./` and redundant separators.
func normalize(path string) string {
	return filepath.Clean(path)
}
