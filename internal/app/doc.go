// Package app wires the pieces together: it configures logging, discovers
// and resolves the program, and drives the requested goals to completion,
// reporting every failure before giving a non-zero verdict.
package app
