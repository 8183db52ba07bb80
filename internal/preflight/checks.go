package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"imgsim/internal/config"
	"imgsim/internal/deps"
	"imgsim/internal/engine"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

// CheckCreatableDirectory passes when the directory is writable, or when it
// is missing but its nearest existing parent is writable.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckEngine evaluates the four engine executables. Both the run commands
// and the preflight command use this so the requirement list lives in one
// place.
func CheckEngine(cfg *config.Config) []deps.Status {
	descriptions := map[engine.Operation]string{
		engine.OpExtract:  "Extracts compact descriptors per image",
		engine.OpIndex:    "Builds the retrieval index",
		engine.OpRetrieve: "Queries the index with the ground-truth image",
		engine.OpMatch:    "Scores query/candidate pairs",
	}
	requirements := make([]deps.Requirement, 0, len(engine.Operations))
	for _, op := range engine.Operations {
		requirements = append(requirements, deps.Requirement{
			Name:        string(op),
			Command:     cfg.EngineBinary(string(op)),
			Description: descriptions[op],
		})
	}
	return deps.CheckBinaries(requirements)
}
