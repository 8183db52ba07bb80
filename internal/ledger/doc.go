// Package ledger persists pipeline runs in SQLite: one row per run, one row
// per stage outcome per collection, the terminal state of every collection,
// and the ranked score records produced by the match stage.
//
// The ledger is a history for the `runs` and `results` commands. The pipeline
// never consults it to decide whether work is done; artifact existence on disk
// stays the only cache signal.
package ledger
