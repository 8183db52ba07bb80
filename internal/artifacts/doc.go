// Package artifacts owns the on-disk naming of every file exchanged with the
// engine and the existence checks the pipeline stages use as cache signals.
//
// All paths are a pure function of the configured layout, the collection
// name, and the artifact kind. Existence is the only cache signal: content is
// never inspected, and a missing directory reads as an absent artifact.
package artifacts
