// Package logs reads the imgsim log file for the `imgsim logs` command.
//
// Tail returns the last lines of the file with bounded memory, optionally
// keeping only lines that mention a run id or collection, and Follow polls
// for lines appended after a known offset until the context ends.
package logs
