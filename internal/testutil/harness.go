// Package testutil provides a standardized harness for integration tests:
// a temporary working directory populated with program files, an app run
// against it, and the captured log output.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/require"

	"github.com/entangled/brei/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Result holds the outcomes of one harness run.
type Result struct {
	Err       error
	LogOutput string
}

// Options tweak a harness run.
type Options struct {
	ForceRun bool
	Jobs     int
}

// Harness is a temporary directory holding program files; the working
// directory is switched into it so relative paths in programs behave as
// they would for a user.
type Harness struct {
	t *testing.T
	// Dir is the temporary root the run executes in.
	Dir string
	// Input is the program reference passed to the app; defaults to
	// "brei.toml" if such a file was given.
	Input string
}

// New creates a harness populated with the given files. Contents are
// dedented so tests can keep fixtures indented inline.
func New(t *testing.T, files map[string]string) *Harness {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(dedent.Dedent(content)), 0o644))
	}

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	h := &Harness{t: t, Dir: dir}
	if _, ok := files["brei.toml"]; ok {
		h.Input = "brei.toml"
	}
	return h
}

// Run drives the given goals against the harness program and returns the
// verdict with the captured log output.
func (h *Harness) Run(targets ...string) *Result {
	return h.RunOpts(Options{}, targets...)
}

// RunOpts is Run with explicit options.
func (h *Harness) RunOpts(opts Options, targets ...string) *Result {
	h.t.Helper()

	cfg, err := app.NewConfig(app.Config{
		InputFile: h.Input,
		Targets:   targets,
		ForceRun:  opts.ForceRun,
		Jobs:      opts.Jobs,
		LogFormat: "text",
		LogLevel:  "debug",
	})
	require.NoError(h.t, err)

	logBuffer := &SafeBuffer{}
	runErr := app.New(logBuffer, cfg).Run(context.Background())

	if os.Getenv("BREI_TEST_LOGS") == "true" {
		h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), logBuffer.String())
	}

	return &Result{Err: runErr, LogOutput: logBuffer.String()}
}
