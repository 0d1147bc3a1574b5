package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/entangled/brei/internal/ctxlog"
	"github.com/entangled/brei/internal/program"
	"github.com/entangled/brei/internal/target"
	"github.com/entangled/brei/internal/task"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// New is the constructor for the main application, with its own isolated
// logger writing to outW.
func New(outW io.Writer, cfg *Config) *App {
	return &App{
		outW:   outW,
		logger: newLogger(cfg, outW),
		config: cfg,
	}
}

// newLogger builds the app's isolated logger from the configured level and
// format. The CLI already validated both; an unknown level means info.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

// GoalError is the verdict of a run in which one or more goals failed.
type GoalError struct {
	Failed map[string]error
}

func (e *GoalError) Error() string {
	return fmt.Sprintf("%d goal(s) failed", len(e.Failed))
}

// Run discovers the program, resolves it into a node database, and drives
// every requested goal. All goals run concurrently; every failure is
// reported before the verdict.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App run started.", "input", a.config.InputFile, "targets", a.config.Targets)

	prg, err := program.Discover(a.config.InputFile)
	if err != nil {
		return err
	}

	// Include generators may already run while resolving, so the force
	// flag and throttle have to be in place before resolution starts.
	db := task.NewDB()
	db.ForceRun = a.config.ForceRun
	if a.config.Jobs > 0 {
		db.Throttle = semaphore.NewWeighted(int64(a.config.Jobs))
	}
	if err := program.ResolveInto(ctx, db, prg); err != nil {
		return err
	}
	a.logger.Debug("Program resolved.", "node_count", len(db.Nodes()))

	goals := make([]target.Target, len(a.config.Targets))
	for i, s := range a.config.Targets {
		goals[i] = target.FromString(s)
	}

	a.logger.Info("🚀 Running goals.", "goals", a.config.Targets)
	errs := make([]error, len(goals))
	var wg sync.WaitGroup
	for i, goal := range goals {
		wg.Add(1)
		go func(i int, goal target.Target) {
			defer wg.Done()
			_, errs[i] = db.Run(ctx, goal)
		}(i, goal)
	}
	wg.Wait()

	failed := map[string]error{}
	for i, err := range errs {
		if err != nil {
			failed[goals[i].String()] = err
		}
	}
	if len(failed) > 0 {
		a.logger.Error("Some goals have failed:")
		for goal, err := range failed {
			a.logger.Error(indent(fmt.Sprintf("%s -> %s", goal, err), "| "))
		}
		return &GoalError{Failed: failed}
	}

	a.logger.Info("🏁 All goals completed.")
	return nil
}

// indent prefixes every line of a (possibly multi-line) message.
func indent(msg, prefix string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
