package task

import (
	"github.com/entangled/brei/internal/tmpl"
)

// Spec is the declared form of a task, as read from a program file. Fields
// are untyped strings and may still contain `${var}` placeholders; binding
// to a runnable Task happens after substitution. A template is a Spec whose
// placeholders are filled in by a template call instead.
type Spec struct {
	Creates     []string
	Requires    []string
	Name        string
	Runner      string
	Path        string
	Script      string
	Stdin       string
	Stdout      string
	Description string
	Force       bool
}

// AllTargets lists every target string the task produces: the declared
// creates plus its stdout target and its phony name, if present.
func (s Spec) AllTargets() []string {
	targets := append([]string(nil), s.Creates...)
	if s.Stdout != "" {
		targets = append(targets, s.Stdout)
	}
	if s.Name != "" {
		targets = append(targets, "#"+s.Name)
	}
	return targets
}

// AllDependencies lists every target string the task consumes: the declared
// requires plus its stdin target and its script path, if present.
func (s Spec) AllDependencies() []string {
	deps := append([]string(nil), s.Requires...)
	if s.Stdin != "" {
		deps = append(deps, s.Stdin)
	}
	if s.Path != "" {
		deps = append(deps, s.Path)
	}
	return deps
}

// GatherArgs collects the placeholder identifiers referenced anywhere in
// the spec.
func (s Spec) GatherArgs() []string {
	seen := map[string]struct{}{}
	var names []string
	collect := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				names = append(names, id)
			}
		}
	}
	collect(tmpl.GatherList(s.Creates))
	collect(tmpl.GatherList(s.Requires))
	collect(tmpl.Gather(s.Name))
	collect(tmpl.Gather(s.Runner))
	collect(tmpl.Gather(s.Path))
	collect(tmpl.Gather(s.Script))
	collect(tmpl.Gather(s.Stdin))
	collect(tmpl.Gather(s.Stdout))
	collect(tmpl.Gather(s.Description))
	return names
}

// Substitute returns a copy of the spec with placeholders replaced from
// env. Unknown placeholders stay literal.
func (s Spec) Substitute(env tmpl.Env) Spec {
	return Spec{
		Creates:     tmpl.SubstituteList(s.Creates, env),
		Requires:    tmpl.SubstituteList(s.Requires, env),
		Name:        tmpl.Substitute(s.Name, env),
		Runner:      tmpl.Substitute(s.Runner, env),
		Path:        tmpl.Substitute(s.Path, env),
		Script:      tmpl.Substitute(s.Script, env),
		Stdin:       tmpl.Substitute(s.Stdin, env),
		Stdout:      tmpl.Substitute(s.Stdout, env),
		Description: tmpl.Substitute(s.Description, env),
		Force:       s.Force,
	}
}
