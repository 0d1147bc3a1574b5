// Package cli parses command-line arguments into an application config and
// implements the informational commands that exit without running anything.
package cli
