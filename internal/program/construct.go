package program

import (
	"fmt"
	"sort"
	"strings"

	"github.com/entangled/brei/internal/task"
)

// FromData constructs a Program from decoded file data, checking it
// strictly against the schema: unknown keys are rejected, value types must
// match, and enum strings are case-folded.
func FromData(data any) (*Program, error) {
	table, err := asTable(data, "program")
	if err != nil {
		return nil, err
	}
	if err := allowKeys(table, "program", "environment", "task", "template", "call", "include", "runner"); err != nil {
		return nil, err
	}

	prg := &Program{}
	if v, ok := table["environment"]; ok {
		if prg.Environment, err = asStringMap(v, "environment"); err != nil {
			return nil, err
		}
	}
	if v, ok := table["task"]; ok {
		items, err := asList(v, "task list")
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			spec, err := specFromData(item, fmt.Sprintf("task[%d]", i))
			if err != nil {
				return nil, err
			}
			prg.Task = append(prg.Task, spec)
		}
	}
	if v, ok := table["template"]; ok {
		templates, err := asTable(v, "template table")
		if err != nil {
			return nil, err
		}
		prg.Template = make(map[string]task.Spec, len(templates))
		for name, item := range templates {
			spec, err := specFromData(item, fmt.Sprintf("template %q", name))
			if err != nil {
				return nil, err
			}
			prg.Template[name] = spec
		}
	}
	if v, ok := table["call"]; ok {
		items, err := asList(v, "call list")
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			call, err := callFromData(item, fmt.Sprintf("call[%d]", i))
			if err != nil {
				return nil, err
			}
			prg.Call = append(prg.Call, call)
		}
	}
	if v, ok := table["include"]; ok {
		if prg.Include, err = asStringList(v, "include list"); err != nil {
			return nil, err
		}
	}
	if v, ok := table["runner"]; ok {
		runners, err := asTable(v, "runner table")
		if err != nil {
			return nil, err
		}
		prg.Runner = make(map[string]task.Runner, len(runners))
		for name, item := range runners {
			runner, err := runnerFromData(item, fmt.Sprintf("runner %q", name))
			if err != nil {
				return nil, err
			}
			prg.Runner[name] = runner
		}
	}
	return prg, nil
}

func specFromData(data any, where string) (task.Spec, error) {
	table, err := asTable(data, where)
	if err != nil {
		return task.Spec{}, err
	}
	if err := allowKeys(table, where,
		"creates", "requires", "name", "runner", "path", "script",
		"stdin", "stdout", "description", "force"); err != nil {
		return task.Spec{}, err
	}

	var spec task.Spec
	fields := []struct {
		key  string
		dest *string
	}{
		{"name", &spec.Name},
		{"runner", &spec.Runner},
		{"path", &spec.Path},
		{"script", &spec.Script},
		{"stdin", &spec.Stdin},
		{"stdout", &spec.Stdout},
		{"description", &spec.Description},
	}
	for _, f := range fields {
		if v, ok := table[f.key]; ok {
			if *f.dest, err = asString(v, where+"."+f.key); err != nil {
				return task.Spec{}, err
			}
		}
	}
	if v, ok := table["creates"]; ok {
		if spec.Creates, err = asStringList(v, where+".creates"); err != nil {
			return task.Spec{}, err
		}
	}
	if v, ok := table["requires"]; ok {
		if spec.Requires, err = asStringList(v, where+".requires"); err != nil {
			return task.Spec{}, err
		}
	}
	if v, ok := table["force"]; ok {
		if spec.Force, err = asBool(v, where+".force"); err != nil {
			return task.Spec{}, err
		}
	}
	if spec.Path != "" && spec.Script != "" {
		return task.Spec{}, &ConfigError{Expected: where + " with either `path` or `script`", Got: "both"}
	}
	return spec, nil
}

func callFromData(data any, where string) (Call, error) {
	table, err := asTable(data, where)
	if err != nil {
		return Call{}, err
	}
	if err := allowKeys(table, where, "template", "args", "collect", "join"); err != nil {
		return Call{}, err
	}

	var call Call
	v, ok := table["template"]
	if !ok {
		return Call{}, &ConfigError{Expected: where + " with a `template` key", Got: data}
	}
	if call.Template, err = asString(v, where+".template"); err != nil {
		return Call{}, err
	}
	if v, ok := table["args"]; ok {
		args, err := asTable(v, where+".args")
		if err != nil {
			return Call{}, err
		}
		call.Args = make(map[string]Arg, len(args))
		for name, item := range args {
			arg, err := argFromData(item, where+".args."+name)
			if err != nil {
				return Call{}, err
			}
			call.Args[name] = arg
		}
	}
	if v, ok := table["collect"]; ok {
		if call.Collect, err = asString(v, where+".collect"); err != nil {
			return Call{}, err
		}
	}
	if v, ok := table["join"]; ok {
		s, err := asString(v, where+".join")
		if err != nil {
			return Call{}, err
		}
		switch strings.ToLower(s) {
		case "inner":
			call.Join = JoinInner
		case "outer":
			call.Join = JoinOuter
		default:
			return Call{}, &ConfigError{Expected: where + `.join of "inner" or "outer"`, Got: s}
		}
	}
	return call, nil
}

func argFromData(data any, where string) (Arg, error) {
	if s, ok := data.(string); ok {
		return ScalarArg(s), nil
	}
	list, err := asStringList(data, where)
	if err != nil {
		return Arg{}, &ConfigError{Expected: where + " as string or list of strings", Got: data}
	}
	return ListArg(list), nil
}

func runnerFromData(data any, where string) (task.Runner, error) {
	table, err := asTable(data, where)
	if err != nil {
		return task.Runner{}, err
	}
	if err := allowKeys(table, where, "command", "args"); err != nil {
		return task.Runner{}, err
	}
	var runner task.Runner
	v, ok := table["command"]
	if !ok {
		return task.Runner{}, &ConfigError{Expected: where + " with a `command` key", Got: data}
	}
	if runner.Command, err = asString(v, where+".command"); err != nil {
		return task.Runner{}, err
	}
	if v, ok := table["args"]; ok {
		if runner.Args, err = asStringList(v, where+".args"); err != nil {
			return task.Runner{}, err
		}
	}
	return runner, nil
}

func allowKeys(table map[string]any, where string, allowed ...string) error {
	ok := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		ok[k] = struct{}{}
	}
	var unknown []string
	for k := range table {
		if _, found := ok[k]; !found {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ConfigError{
			Expected: fmt.Sprintf("%s keys among [%s]", where, strings.Join(allowed, ", ")),
			Got:      strings.Join(unknown, ", "),
		}
	}
	return nil
}

func asTable(data any, where string) (map[string]any, error) {
	if m, ok := data.(map[string]any); ok {
		return m, nil
	}
	return nil, &ConfigError{Expected: where + " as a table", Got: data}
}

func asList(data any, where string) ([]any, error) {
	if l, ok := data.([]any); ok {
		return l, nil
	}
	return nil, &ConfigError{Expected: where + " as a list", Got: data}
}

func asString(data any, where string) (string, error) {
	if s, ok := data.(string); ok {
		return s, nil
	}
	return "", &ConfigError{Expected: where + " as a string", Got: data}
}

func asBool(data any, where string) (bool, error) {
	if b, ok := data.(bool); ok {
		return b, nil
	}
	return false, &ConfigError{Expected: where + " as a boolean", Got: data}
}

func asStringList(data any, where string) ([]string, error) {
	items, err := asList(data, where)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, err := asString(item, fmt.Sprintf("%s[%d]", where, i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func asStringMap(data any, where string) (map[string]string, error) {
	table, err := asTable(data, where)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(table))
	for k, v := range table {
		s, err := asString(v, where+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}
