package task

// Runner is a named recipe for interpreting a script via an external
// executable. Each argument may contain the `${script}` placeholder, which
// is substituted with the materialized script path at invocation time.
type Runner struct {
	Command string
	Args    []string
}

// DefaultRunners returns the built-in runner table. Program-declared
// runners are merged on top, overriding entries by key.
func DefaultRunners() map[string]Runner {
	return map[string]Runner{
		"bash":   {Command: "bash", Args: []string{"${script}"}},
		"python": {Command: "python", Args: []string{"${script}"}},
	}
}
