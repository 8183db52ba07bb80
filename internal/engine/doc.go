// Package engine mediates access to the external feature extraction, index,
// match, and retrieval executables.
//
// It builds the positional argument lists for the four operations, runs the
// executable behind a testable Executor, captures combined output for
// diagnostics, and reports the exit status without treating a non-zero exit
// as an error. Repeated launch failures open a circuit breaker so remaining
// collections fail fast instead of spawning processes that cannot start.
package engine
