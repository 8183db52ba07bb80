// Package textutil provides small text helpers shared by the pipeline and the
// CLI: lock-file tokens and display-title normalization.
package textutil
