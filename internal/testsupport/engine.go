package testsupport

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EngineCall records one fake engine invocation.
type EngineCall struct {
	Binary string
	Args   []string
}

// FakeEngine stands in for the external engine executables. It records every
// invocation and writes the artifacts the real binaries would produce so the
// pipeline cache signals behave as in production.
type FakeEngine struct {
	// ExitStatus maps a binary base name to the status it exits with.
	ExitStatus map[string]int
	// LaunchErr, when set, is returned for every invocation without running.
	LaunchErr error
	// RetrievalTrace is written to the -t file of retrieve invocations.
	RetrievalTrace string
	// MatchTrace is written to the -t file of match invocations.
	MatchTrace string
	// FeatureSuffix names extracted feature files; defaults to ".DB.cdvs".
	FeatureSuffix string
	// Output lines are streamed to the caller on every invocation.
	Output []string

	mu    sync.Mutex
	calls []EngineCall
}

// Run implements engine.Executor.
func (f *FakeEngine) Run(ctx context.Context, binary string, args []string, onOutput func(string)) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, EngineCall{Binary: binary, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if f.LaunchErr != nil {
		return -1, f.LaunchErr
	}
	for _, line := range f.Output {
		if onOutput != nil {
			onOutput(line)
		}
	}

	name := filepath.Base(binary)
	if status := f.ExitStatus[name]; status != 0 {
		return status, nil
	}
	if err := f.produce(name, args); err != nil {
		return -1, err
	}
	return 0, nil
}

// Calls returns a copy of the recorded invocations.
func (f *FakeEngine) Calls() []EngineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EngineCall(nil), f.calls...)
}

// Count returns the number of invocations of the named binary, or of all
// binaries when name is empty.
func (f *FakeEngine) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		return len(f.calls)
	}
	count := 0
	for _, call := range f.calls {
		if filepath.Base(call.Binary) == name {
			count++
		}
	}
	return count
}

func (f *FakeEngine) produce(name string, args []string) error {
	switch name {
	case "extract":
		if len(args) < 3 {
			return nil
		}
		return f.writeFeatures(args[0], args[2])
	case "makeIndex":
		if len(args) < 2 {
			return nil
		}
		for _, suffix := range []string{".local", ".global"} {
			if err := writeArtifact(args[1]+suffix, "index\n"); err != nil {
				return err
			}
		}
	case "retrieve":
		if trace := flagValue(args, "-t"); trace != "" {
			return writeArtifact(trace, f.RetrievalTrace)
		}
	case "match":
		if trace := flagValue(args, "-t"); trace != "" {
			return writeArtifact(trace, f.MatchTrace)
		}
	}
	return nil
}

func (f *FakeEngine) writeFeatures(listPath, datasetPath string) error {
	suffix := f.FeatureSuffix
	if suffix == "" {
		suffix = ".DB.cdvs"
	}
	file, err := os.Open(listPath)
	if err != nil {
		return err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		image := strings.TrimSpace(scanner.Text())
		if image == "" {
			continue
		}
		stem := strings.TrimSuffix(image, filepath.Ext(image))
		if err := writeArtifact(filepath.Join(datasetPath, stem+suffix), "features\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func writeArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
