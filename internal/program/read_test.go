package program

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(dedent.Dedent(content)), 0o644))
	return path
}

func TestRead_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prog.toml", `
		[environment]
		msg = "hi"

		[[task]]
		name = "greet"
		script = "echo ${msg}"
	`)

	prg, err := Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, "hi", prg.Environment["msg"])
	require.Len(t, prg.Task, 1)
	assert.Equal(t, "greet", prg.Task[0].Name)
}

func TestRead_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prog.json", `
		{
		  "task": [
		    {"name": "greet", "script": "echo hi"}
		  ]
		}
	`)

	prg, err := Read(path, "")
	require.NoError(t, err)
	require.Len(t, prg.Task, 1)
	assert.Equal(t, "greet", prg.Task[0].Name)
}

func TestRead_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prog.yaml", `
		task:
		  - name: greet
		    script: echo hi
	`)

	prg, err := Read(path, "")
	require.NoError(t, err)
	require.Len(t, prg.Task, 1)
	assert.Equal(t, "greet", prg.Task[0].Name)
}

func TestRead_Subsection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pyproject.toml", `
		[project]
		name = "demo"

		[tool.brei]
		[[tool.brei.task]]
		name = "greet"
		script = "echo hi"
	`)

	prg, err := Read(path, "tool.brei")
	require.NoError(t, err)
	require.Len(t, prg.Task, 1)

	_, err = Read(path, "tool.missing")
	var userErr *UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestRead_UnrecognizedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prog.ini", "[task]\n")

	_, err := Read(path, "")
	var userErr *UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestRead_FileNotFound(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.toml"), "")
	var userErr *UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestSplitFileRef(t *testing.T) {
	testCases := []struct {
		ref     string
		path    string
		section string
	}{
		{"brei.toml", "brei.toml", ""},
		{"pyproject.toml[tool.brei]", "pyproject.toml", "tool.brei"},
		{"deep/prog.json[a.b.c]", "deep/prog.json", "a.b.c"},
	}
	for _, tc := range testCases {
		path, section := SplitFileRef(tc.ref)
		assert.Equal(t, tc.path, path)
		assert.Equal(t, tc.section, section)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	_, err = Discover("")
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)

	writeFile(t, dir, "pyproject.toml", `
		[tool.brei]
		[[tool.brei.task]]
		name = "from-pyproject"
		script = "true"
	`)
	prg, err := Discover("")
	require.NoError(t, err)
	assert.Equal(t, "from-pyproject", prg.Task[0].Name)

	writeFile(t, dir, "brei.toml", `
		[[task]]
		name = "from-brei"
		script = "true"
	`)
	prg, err = Discover("")
	require.NoError(t, err)
	assert.Equal(t, "from-brei", prg.Task[0].Name, "brei.toml wins over pyproject.toml")

	explicit := writeFile(t, dir, "other.toml", `
		[[task]]
		name = "explicit"
		script = "true"
	`)
	prg, err = Discover(explicit)
	require.NoError(t, err)
	assert.Equal(t, "explicit", prg.Task[0].Name)
}
