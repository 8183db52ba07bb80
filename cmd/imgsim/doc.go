// Package main hosts the imgsim CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, builds the engine
// client and run ledger, and hands collections to the driver. Read-only
// commands present the ledger and preflight checks as terminal tables or
// JSON.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
