// Package services defines shared utilities consumed by the pipeline stages
// and the collection driver.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, collection names, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent driver outcomes (failed vs skipped).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across collections.
package services
