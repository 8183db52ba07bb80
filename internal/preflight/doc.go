// Package preflight provides readiness checks for the engine executables and
// the directories imgsim reads and writes.
//
// These checks run in two contexts:
//   - The run commands call CheckEngine before starting the driver and
//     refuse to start when a required engine binary is missing.
//   - The CLI "imgsim preflight" command prints every check as a table.
package preflight
