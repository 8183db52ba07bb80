package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"imgsim/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("IMGSIM_ENGINE_BIN_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "imgsim")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.DatasetDir != "demo" || cfg.Paths.AnnotationDir != "annotation" {
		t.Fatalf("unexpected layout defaults: %+v", cfg.Paths)
	}
	if got := cfg.Artifacts.ImageExtensions; len(got) != 1 || got[0] != ".jpg" {
		t.Fatalf("unexpected image extensions: %v", got)
	}
	if cfg.Engine.Mode != "0" {
		t.Fatalf("unexpected engine mode: %q", cfg.Engine.Mode)
	}
	if cfg.Pipeline.Workers < 1 {
		t.Fatalf("expected at least one worker, got %d", cfg.Pipeline.Workers)
	}
	if !cfg.Pipeline.SortImageList {
		t.Fatal("expected sorted image lists by default")
	}
	if cfg.Render.Columns != 4 {
		t.Fatalf("unexpected render columns: %d", cfg.Render.Columns)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(cfg.Paths.StateDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "imgsim.toml")

	type payload struct {
		Paths struct {
			RootDir string `toml:"root_dir"`
		} `toml:"paths"`
		Engine struct {
			BinDir string `toml:"bin_dir"`
			Mode   string `toml:"mode"`
		} `toml:"engine"`
		Artifacts struct {
			ImageExtensions []string `toml:"image_extensions"`
		} `toml:"artifacts"`
		Render struct {
			Columns int `toml:"columns"`
		} `toml:"render"`
	}
	custom := payload{}
	custom.Paths.RootDir = filepath.Join(tempDir, "image")
	custom.Engine.BinDir = filepath.Join(tempDir, "bin")
	custom.Engine.Mode = "3"
	custom.Artifacts.ImageExtensions = []string{"png", " .jpg ", ".jpg"}
	custom.Render.Columns = 14
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Engine.Mode != "3" {
		t.Fatalf("expected mode override, got %q", cfg.Engine.Mode)
	}
	if got := cfg.Artifacts.ImageExtensions; len(got) != 2 || got[0] != ".png" || got[1] != ".jpg" {
		t.Fatalf("expected normalized extensions, got %v", got)
	}
	if cfg.Render.Columns != 14 {
		t.Fatalf("expected 14 columns, got %d", cfg.Render.Columns)
	}
	if cfg.DatasetPath() != filepath.Join(tempDir, "image", "demo") {
		t.Fatalf("unexpected dataset path: %q", cfg.DatasetPath())
	}
	if cfg.ResultsDir() != filepath.Join(tempDir, "image", "results") {
		t.Fatalf("unexpected results dir: %q", cfg.ResultsDir())
	}
	if got := cfg.EngineBinary("index"); got != filepath.Join(tempDir, "bin", "makeIndex") {
		t.Fatalf("unexpected index binary: %q", got)
	}
}

func TestEngineBinDirFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	binDir := t.TempDir()
	t.Setenv("IMGSIM_ENGINE_BIN_DIR", binDir)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Engine.BinDir != binDir {
		t.Fatalf("expected bin dir from env, got %q", cfg.Engine.BinDir)
	}
	if got := cfg.EngineBinary("retrieve"); got != filepath.Join(binDir, "retrieve") {
		t.Fatalf("unexpected retrieve binary: %q", got)
	}
	if got := cfg.EngineBinary("bogus"); got != "" {
		t.Fatalf("expected empty binary for unknown op, got %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{"mode", func(c *config.Config) { c.Engine.Mode = "fast" }, "engine.mode"},
		{"match type", func(c *config.Config) { c.Engine.MatchType = 7 }, "engine.match_type"},
		{"timeout", func(c *config.Config) { c.Engine.TimeoutSeconds = -1 }, "engine.timeout_seconds"},
		{"columns", func(c *config.Config) { c.Render.Columns = 5 }, "render.columns"},
		{"list name", func(c *config.Config) { c.Artifacts.ImageListName = "a/b.txt" }, "artifacts.image_list_name"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"notify timeout", func(c *config.Config) { c.Notifications.RequestTimeoutSeconds = -5 }, "notifications.request_timeout_seconds"},
		{"trace suffixes", func(c *config.Config) { c.Artifacts.MatchTraceSuffix = c.Artifacts.RetrievalTraceSuffix }, "artifacts.retrieval_trace_suffix"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantKey) {
				t.Fatalf("expected error to mention %q, got %v", tc.wantKey, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Engine.IndexBinary != "makeIndex" {
		t.Fatalf("unexpected index binary: %q", cfg.Engine.IndexBinary)
	}
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(encoded), "feature_suffix") {
		t.Fatalf("expected encoded config to include artifacts section, got %s", encoded)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	root := t.TempDir()

	if err := cfg.Apply(config.Overrides{RootDir: root, Mode: "3", LogLevel: "DEBUG"}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if cfg.Paths.RootDir != root || cfg.Engine.Mode != "3" || cfg.Logging.Level != "debug" {
		t.Fatalf("overrides not applied: %+v %+v %+v", cfg.Paths, cfg.Engine, cfg.Logging)
	}
	if cfg.DatasetPath() != filepath.Join(root, "demo") {
		t.Fatalf("unexpected dataset path %q", cfg.DatasetPath())
	}

	if err := cfg.Apply(config.Overrides{Mode: "fast"}); err == nil {
		t.Fatal("expected invalid mode to be rejected")
	}
}
