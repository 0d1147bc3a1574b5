package program

import (
	"context"
	"fmt"
	"os"

	"github.com/entangled/brei/internal/ctxlog"
	"github.com/entangled/brei/internal/target"
	"github.com/entangled/brei/internal/task"
	"github.com/entangled/brei/internal/tmpl"
)

// Resolve turns a declared program into a ready-to-run node database.
func Resolve(ctx context.Context, prg *Program) (*task.DB, error) {
	db := task.NewDB()
	if err := ResolveInto(ctx, db, prg); err != nil {
		return nil, err
	}
	return db, nil
}

// ResolveInto populates a caller-configured database with the declared
// program. Tasks that generate includes run during resolution, so the
// database's force flag and throttle must be set before calling this.
func ResolveInto(ctx context.Context, db *task.DB, prg *Program) error {
	r := &resolver{
		db:        db,
		templates: map[string]task.Spec{},
	}
	return r.program(ctx, prg)
}

// resolver carries the state shared across recursively included programs:
// the database under construction and the template index, which later
// includes keep extending.
type resolver struct {
	db        *task.DB
	templates map[string]task.Spec
}

// program resolves one program file. Includes recurse back into this
// method against the same database; each file settles its own deferred
// calls and delayed tasks after its includes are in.
func (r *resolver) program(ctx context.Context, prg *Program) error {
	logger := ctxlog.FromContext(ctx)

	for name, template := range prg.Environment {
		r.db.AddVariable(name, template)
	}
	for name, runner := range prg.Runner {
		r.db.Runners[name] = runner
	}
	for name, spec := range prg.Template {
		r.templates[name] = spec
	}

	specs := append([]task.Spec(nil), prg.Task...)
	var delayedCalls []Call
	var delayedSpecs []task.Spec

	for _, c := range prg.Call {
		template, ok := r.templates[c.Template]
		if !ok {
			logger.Debug("Template not available yet, waiting for includes to resolve.", "template", c.Template)
			delayedCalls = append(delayedCalls, c)
			continue
		}
		specs = append(specs, expand(template, c)...)
	}

	// A task whose target names still hold placeholders cannot be indexed
	// yet; those variables only need to exist by the end of this file's
	// resolution, wherever they are declared.
	for _, spec := range specs {
		if len(tmpl.GatherList(spec.AllTargets())) > 0 {
			delayedSpecs = append(delayedSpecs, spec)
			continue
		}
		if err := r.db.AddTask(spec); err != nil {
			return err
		}
	}

	// First settling pass: anything resolvable from this file's own
	// variables is inserted now, so include generators may depend on it.
	delayedSpecs, err := r.settleDelayed(ctx, delayedSpecs, false)
	if err != nil {
		return err
	}

	for _, inc := range prg.Include {
		if err := r.include(ctx, inc); err != nil {
			return err
		}
	}

	for _, c := range delayedCalls {
		template, ok := r.templates[c.Template]
		if !ok {
			logger.Debug("Template still not available after includes.", "template", c.Template)
			return &MissingTemplateError{Name: c.Template}
		}
		for _, spec := range expand(template, c) {
			if len(tmpl.GatherList(spec.AllTargets())) > 0 {
				delayedSpecs = append(delayedSpecs, spec)
				continue
			}
			if err := r.db.AddTask(spec); err != nil {
				return err
			}
		}
	}

	_, err = r.settleDelayed(ctx, delayedSpecs, true)
	return err
}

// settleDelayed tries to insert delayed tasks whose target placeholders
// have become resolvable, running the variables to concretize the targets.
// The rest stay deferred — unless this is the final pass, where leftovers
// are a user error.
func (r *resolver) settleDelayed(ctx context.Context, delayed []task.Spec, final bool) ([]task.Spec, error) {
	var still []task.Spec
	for _, spec := range delayed {
		if !r.db.IsResolvable(spec.AllTargets()) {
			if final {
				return nil, &UserError{Msg: fmt.Sprintf("task has unresolvable targets: %v", spec.AllTargets())}
			}
			still = append(still, spec)
			continue
		}
		if err := r.db.AddTask(r.db.ResolveSpec(ctx, spec)); err != nil {
			return nil, err
		}
	}
	return still, nil
}

// include resolves an include reference: its path may itself use
// variables, and if the path is a task target, that task runs first so
// includes can be generated.
func (r *resolver) include(ctx context.Context, inc string) error {
	logger := ctxlog.FromContext(ctx)

	if !r.db.IsResolvable([]string{inc}) {
		return &UserError{Msg: fmt.Sprintf("include has unresolvable path: %s", inc)}
	}
	path, err := r.db.ResolveString(ctx, inc)
	if err != nil {
		return fmt.Errorf("resolving include `%s`: %w", inc, err)
	}

	if _, ok := r.db.Lookup(target.NewFile(path)); ok {
		logger.Debug("Include is a task target, generating it first.", "path", path)
		if _, err := r.db.Run(ctx, target.NewFile(path)); err != nil {
			return fmt.Errorf("generating include `%s`: %w", path, err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return &MissingIncludeError{Path: path}
	}

	sub, err := Read(path, "")
	if err != nil {
		return err
	}
	logger.Debug("Resolving included program.", "path", path)
	return r.program(ctx, sub)
}

// expand applies a template to each argument mapping of a call. With
// collect set, a phony aggregator requiring every produced target is
// appended.
func expand(template task.Spec, c Call) []task.Spec {
	args := c.AllArgs()
	specs := make([]task.Spec, 0, len(args))
	for _, a := range args {
		specs = append(specs, template.Substitute(tmpl.MapEnv(a)))
	}
	if c.Collect != "" {
		seen := map[string]struct{}{}
		var union []string
		for _, spec := range specs {
			for _, t := range spec.AllTargets() {
				if _, ok := seen[t]; !ok {
					seen[t] = struct{}{}
					union = append(union, t)
				}
			}
		}
		specs = append(specs, task.Spec{Name: c.Collect, Requires: union})
	}
	return specs
}
