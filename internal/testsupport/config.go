package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"imgsim/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The dataset and annotation directories of the input root are created so
// the layout is valid; collections are added with WithCollection.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RootDir = filepath.Join(base, "root")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Engine.BinDir = filepath.Join(base, "bin")
	cfgVal.Pipeline.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, dir := range []string{cfgVal.DatasetPath(), cfgVal.AnnotationPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCollection creates a collection directory holding the named files.
func WithCollection(name string, files ...string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.cfg.DatasetPath(), name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir collection %s: %v", name, err)
		}
		for _, file := range files {
			WriteFile(b.t, filepath.Join(dir, file), 16)
		}
	}
}

// WithRenderColumns overrides the result grid width.
func WithRenderColumns(columns int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Columns = columns
	}
}

// WithWorkers overrides the driver worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Workers = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names into
// the engine bin directory. If names is empty, the four engine binaries are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{
				b.cfg.Engine.ExtractBinary,
				b.cfg.Engine.IndexBinary,
				b.cfg.Engine.MatchBinary,
				b.cfg.Engine.RetrieveBinary,
			}
		}
		binDir := b.cfg.Engine.BinDir
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
