package preflight

import (
	"imgsim/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks for the given config. Inputs need
// read access; the annotation directory, results, and state need write
// access because the pipeline writes lists, pair files, documents, and the
// ledger there.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Input root", cfg.Paths.RootDir),
		CheckReadableDirectory("Dataset directory", cfg.DatasetPath()),
		CheckDirectoryAccess("Annotation directory", cfg.AnnotationPath()),
		CheckCreatableDirectory("Results directory", cfg.ResultsDir()),
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
