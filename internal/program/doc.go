// Package program turns a declarative workflow file into a populated node
// database. A program lists tasks, environment variables, templates,
// template calls, includes, and runners; resolution expands template calls
// with inner/outer multiplexing, defers tasks whose target names still
// contain placeholders until the variables they reference exist, and
// recursively resolves included files, running the tasks that generate
// them first.
package program
