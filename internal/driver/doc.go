// Package driver runs the pipeline stages over every collection of the input
// root.
//
// Collections are independent, so the driver fans them out over a bounded
// worker pool while running the stages of one collection strictly in order.
// A file lock per collection serializes overlapping runs on the same
// collection. Every failure is contained at the collection boundary: it is
// logged, recorded in the ledger, and the next collection proceeds.
package driver
