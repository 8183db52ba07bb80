// Package pipeline implements the per-collection stages: extract, index,
// retrieve, and match. Match also scores the engine trace, ranks the
// records, and renders the result document.
//
// Every stage consults the artifact store for its own cache signal before
// invoking the engine, so a stage is safe to re-run at any time. Stages never
// share state across collections; the driver owns sequencing and fan-out.
package pipeline
