package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/entangled/brei/internal/ctxlog"
	"github.com/entangled/brei/internal/tmpl"
)

// run performs the task: decide freshness, spawn the subprocess(es) with
// the declared stdin/stdout wiring, then verify the goals were achieved.
// The returned string is the captured stdout when the task's stdout is a
// variable, trimmed of surrounding whitespace.
func (t *Task) run(ctx context.Context, db *DB) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if !t.alwaysRun() && !db.ForceRun && !t.needsRun() {
		logger.Debug("✅ Targets already up-to-date.", "targets", t.targetPaths())
		return "", nil
	}
	if t.script == "" && t.path == "" {
		return "", nil
	}

	note := t.banner()
	logger.Info("▶️ " + note)

	stdin, closeStdin, err := t.openStdin(db)
	if err != nil {
		return "", err
	}
	defer closeStdin()

	capture := t.stdout != nil && t.stdout.IsVariable()
	stdout, closeStdout, err := t.openStdout()
	if err != nil {
		return "", err
	}
	var captured bytes.Buffer
	if capture {
		stdout = &captured
	}

	switch {
	case t.runner == "" && t.script != "":
		err = t.runDirect(ctx, db, note, stdin, stdout, capture)
	case t.runner != "":
		err = t.runWithRunner(ctx, db, note, stdin, stdout)
	}
	if closeErr := closeStdout(); err == nil && closeErr != nil {
		err = &Error{Message: fmt.Sprintf("closing stdout: %v", closeErr)}
	}
	if err != nil {
		return "", err
	}

	if t.needsRun() {
		return "", &Error{Message: "task didn't achieve goals"}
	}
	if capture {
		return strings.TrimSpace(captured.String()), nil
	}
	return "", nil
}

// runDirect executes each non-empty script line as a program, shell-word
// split, without any interpreter in between.
func (t *Task) runDirect(ctx context.Context, db *DB, note string, stdin io.Reader, stdout io.Writer, capture bool) error {
	var lines []string
	for _, line := range strings.Split(t.script, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 1 && t.stdin != nil {
		return &Error{Message: "a multi-line script cannot read from stdin"}
	}
	if len(lines) > 1 && capture {
		return &Error{Message: "capturing stdout into a variable requires a single-line script"}
	}

	for _, line := range lines {
		words, err := shlex.Split(line)
		if err != nil {
			return &Error{Message: fmt.Sprintf("splitting script line %q: %v", line, err)}
		}
		if len(words) == 0 {
			continue
		}
		if err := t.spawn(ctx, db, note, words[0], words[1:], stdin, stdout); err != nil {
			return err
		}
	}
	return nil
}

// runWithRunner materializes the script to a file and invokes the named
// runner once, substituting `${script}` in its argument list.
func (t *Task) runWithRunner(ctx context.Context, db *DB, note string, stdin io.Reader, stdout io.Writer) error {
	runner, ok := db.Runners[t.runner]
	if !ok {
		return &Error{Message: fmt.Sprintf("unknown runner: %s", t.runner)}
	}
	scriptPath, cleanup, err := t.materializeScript()
	if err != nil {
		return err
	}
	defer cleanup()

	args := tmpl.SubstituteList(runner.Args, tmpl.MapEnv{"script": scriptPath})
	return t.spawn(ctx, db, note, runner.Command, args, stdin, stdout)
}

// spawn starts one subprocess under the database throttle and waits for it.
// Stderr is logged under the task banner; the exit code is surfaced in the
// logs but does not fail the task — the post-run freshness check decides.
func (t *Task) spawn(ctx context.Context, db *DB, note, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	logger := ctxlog.FromContext(ctx)

	if db.Throttle != nil {
		if err := db.Throttle.Acquire(ctx, 1); err != nil {
			return &Error{Message: fmt.Sprintf("acquiring job slot: %v", err)}
		}
		defer db.Throttle.Release(1)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if msg := strings.TrimRight(stderr.String(), "\n"); msg != "" {
		logger.Info(note, "stderr", msg)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Debug("Subprocess finished.", "command", name, "return-code", 0)
	case errors.As(err, &exitErr):
		logger.Debug("Subprocess finished.", "command", name, "return-code", exitErr.ExitCode())
	default:
		return &Error{Message: fmt.Sprintf("starting %s: %v", name, err)}
	}
	return nil
}

// openStdin prepares the child's standard input: a variable pipes its
// memoized value, a file is opened for reading, absent means no input.
func (t *Task) openStdin(db *DB) (io.Reader, func(), error) {
	if t.stdin == nil {
		return nil, func() {}, nil
	}
	if t.stdin.IsVariable() {
		v, ok := db.Environment().Lookup(t.stdin.Name())
		if !ok {
			return nil, func() {}, &Error{Message: fmt.Sprintf("unresolved stdin variable: %s", t.stdin)}
		}
		return strings.NewReader(v), func() {}, nil
	}
	f, err := os.Open(t.stdin.Path())
	if err != nil {
		return nil, func() {}, &Error{Message: fmt.Sprintf("opening stdin: %v", err)}
	}
	return f, func() { f.Close() }, nil
}

// openStdout prepares the child's standard output when it goes to a file;
// absent means the child inherits the parent's stdout. Variable capture is
// handled by the caller.
func (t *Task) openStdout() (io.Writer, func() error, error) {
	if t.stdout == nil || !t.stdout.IsFile() {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(t.stdout.Path())
	if err != nil {
		return nil, nil, &Error{Message: fmt.Sprintf("opening stdout: %v", err)}
	}
	return f, f.Close, nil
}

// materializeScript yields a path holding the script source: the declared
// path if given, otherwise a temporary file removed after the run.
func (t *Task) materializeScript() (string, func(), error) {
	if t.path != "" {
		return t.path, func() {}, nil
	}
	f, err := os.CreateTemp("", "brei-script-*")
	if err != nil {
		return "", nil, &Error{Message: fmt.Sprintf("materializing script: %v", err)}
	}
	if _, err := f.WriteString(t.script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, &Error{Message: fmt.Sprintf("materializing script: %v", err)}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, &Error{Message: fmt.Sprintf("materializing script: %v", err)}
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
