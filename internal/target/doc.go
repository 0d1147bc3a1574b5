// Package target defines the identifiers that the node database is keyed
// by. A target is one of three kinds: a file path, a phony name, or a
// variable reference. The textual grammar is `#name` for phony targets,
// `var(name)` for variables, and any other string for a file path.
package target
