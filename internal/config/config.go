package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the input layout and local state locations.
type Paths struct {
	RootDir       string `toml:"root_dir"`
	DatasetDir    string `toml:"dataset_dir"`
	AnnotationDir string `toml:"annotation_dir"`
	ResultsDir    string `toml:"results_dir"`
	StateDir      string `toml:"state_dir"`
}

// Engine contains configuration for the external feature/match/index/retrieve engine.
type Engine struct {
	BinDir          string `toml:"bin_dir"`
	ExtractBinary   string `toml:"extract_binary"`
	IndexBinary     string `toml:"index_binary"`
	MatchBinary     string `toml:"match_binary"`
	RetrieveBinary  string `toml:"retrieve_binary"`
	Mode            string `toml:"mode"`
	ParamsFile      string `toml:"params_file"`
	MatchType       int    `toml:"match_type"`
	OneWay          bool   `toml:"one_way"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	BreakerFailures int    `toml:"breaker_failures"`
}

// Artifacts contains naming rules for the files exchanged with the engine.
type Artifacts struct {
	ImageExtensions      []string `toml:"image_extensions"`
	FeatureSuffix        string   `toml:"feature_suffix"`
	ImageListName        string   `toml:"image_list_name"`
	IndexName            string   `toml:"index_name"`
	GroundTruthName      string   `toml:"ground_truth_name"`
	RetrievalTraceSuffix string   `toml:"retrieval_trace_suffix"`
	MatchTraceSuffix     string   `toml:"match_trace_suffix"`
	MetadataSuffix       string   `toml:"metadata_suffix"`
}

// Pipeline contains scheduling settings for the collection driver.
type Pipeline struct {
	Workers       int  `toml:"workers"`
	SortImageList bool `toml:"sort_image_list"`
}

// Render contains settings for ranked result documents.
type Render struct {
	Columns   int  `toml:"columns"`
	Overwrite bool `toml:"overwrite"`
}

// Metrics contains Prometheus export settings.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications contains ntfy delivery settings for run summaries.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for imgsim.
//
// Configuration sections by subsystem:
//   - Paths: input root layout, results and local state
//   - Engine: external engine binaries and invocation flags
//   - Artifacts: file naming shared with the engine
//   - Pipeline: worker pool and image list ordering
//   - Render: ranked result documents
//   - Metrics: optional Prometheus textfile export
//   - Notifications: optional ntfy run summaries
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Artifacts     Artifacts     `toml:"artifacts"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Render        Render        `toml:"render"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/imgsim/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("imgsim.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state and results directories.
// The input root is never created; a missing root is a configuration error
// reported by the driver.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.ResultsDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatasetPath returns the directory holding one sub-directory per collection.
func (c *Config) DatasetPath() string {
	return filepath.Join(c.Paths.RootDir, c.Paths.DatasetDir)
}

// AnnotationPath returns the directory the engine reads list files from.
func (c *Config) AnnotationPath() string {
	return filepath.Join(c.Paths.RootDir, c.Paths.AnnotationDir)
}

// ResultsDir returns the directory rendered result documents are written to.
func (c *Config) ResultsDir() string {
	if strings.TrimSpace(c.Paths.ResultsDir) != "" {
		return c.Paths.ResultsDir
	}
	if strings.TrimSpace(c.Paths.RootDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.RootDir, defaultResultsDirName)
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockDir returns the directory holding per-collection lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// LogPath returns the log file written alongside console output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "imgsim.log")
}

// EngineBinary resolves the executable for an engine operation. Relative
// binaries are joined with engine.bin_dir when one is configured.
func (c *Config) EngineBinary(operation string) string {
	var name string
	switch operation {
	case "extract":
		name = c.Engine.ExtractBinary
	case "index", "makeIndex":
		name = c.Engine.IndexBinary
	case "match":
		name = c.Engine.MatchBinary
	case "retrieve":
		name = c.Engine.RetrieveBinary
	default:
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) || strings.TrimSpace(c.Engine.BinDir) == "" {
		return name
	}
	return filepath.Join(c.Engine.BinDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
