// Package task provides the node variants that populate the database: tasks
// that run subprocesses to produce files, phony names, or captured variable
// values, and variables whose values are templated strings. It also owns the
// runner table and the file-freshness decision.
package task
