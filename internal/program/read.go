package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileRefRe matches a program file reference with a `[a.b.c]` subsection
// suffix.
var fileRefRe = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]\s]+)\]$`)

// SplitFileRef separates a file reference into its path and optional
// subsection selector.
func SplitFileRef(ref string) (path, section string) {
	if m := fileRefRe.FindStringSubmatch(ref); m != nil {
		return m[1], m[2]
	}
	return ref, ""
}

// Read loads a program from a TOML, JSON, or YAML file. A non-empty
// section selects a nested table (periods indicate deeper nesting) as the
// program root.
func Read(path, section string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &UserError{Msg: fmt.Sprintf("file not found: %s", path)}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var data any
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		m := map[string]any{}
		if err := toml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		data = m
	case ".json":
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, &UserError{Msg: fmt.Sprintf("unrecognized file format: %s", path)}
	}

	if section != "" {
		for _, s := range strings.Split(section, ".") {
			table, err := asTable(data, "section "+section)
			if err != nil {
				return nil, err
			}
			sub, ok := table[s]
			if !ok {
				return nil, &UserError{Msg: fmt.Sprintf("data file `%s` should contain section `%s`", path, section)}
			}
			data = sub
		}
	}

	prg, err := FromData(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prg, nil
}

// Discover finds the program to run: an explicit reference wins, then
// `brei.toml` in the working directory, then the `[tool.brei]` table of
// `pyproject.toml`.
func Discover(ref string) (*Program, error) {
	if ref != "" {
		path, section := SplitFileRef(ref)
		return Read(path, section)
	}
	if _, err := os.Stat("brei.toml"); err == nil {
		return Read("brei.toml", "")
	}
	if _, err := os.Stat("pyproject.toml"); err == nil {
		prg, err := Read("pyproject.toml", "tool.brei")
		if err != nil {
			var userErr *UserError
			if errors.As(err, &userErr) {
				return nil, &UserError{Msg: "without the `-i` argument, brei looks for `brei.toml` first, then for " +
					"a `[tool.brei]` section in `pyproject.toml`; a `pyproject.toml` was found but contained no such section"}
			}
			return nil, err
		}
		return prg, nil
	}
	return nil, &UserError{Msg: "no input file given, no `brei.toml` found and no `pyproject.toml` found"}
}
