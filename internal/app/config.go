package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	// InputFile is the program reference, optionally with a `[a.b.c]`
	// subsection suffix. Empty means discovery (brei.toml, then the
	// [tool.brei] table of pyproject.toml).
	InputFile string
	// Targets are the goals to run, in target grammar.
	Targets []string
	// ForceRun makes every task run regardless of freshness.
	ForceRun bool
	// Jobs bounds the number of concurrently live subprocesses. Zero
	// means unbounded.
	Jobs int

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	if cfg.Jobs < 0 {
		return nil, errors.New("jobs must not be negative")
	}
	return &cfg, nil
}
