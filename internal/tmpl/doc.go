// Package tmpl implements the placeholder grammar used throughout program
// files: `$NAME` or `${NAME}` refers to a variable, `$$` is a literal `$`,
// and every other character passes through untouched. Substitution is safe:
// placeholders that the environment cannot resolve are left literal.
package tmpl
