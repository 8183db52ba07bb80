package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeArtifacts()
	c.normalizePipeline()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.RootDir = fallback(c.Paths.RootDir, ".")
	if c.Paths.RootDir, err = expandPath(c.Paths.RootDir); err != nil {
		return fmt.Errorf("paths.root_dir: %w", err)
	}
	c.Paths.DatasetDir = strings.TrimSpace(c.Paths.DatasetDir)
	if c.Paths.DatasetDir == "" {
		c.Paths.DatasetDir = defaultDatasetDir
	}
	c.Paths.AnnotationDir = strings.TrimSpace(c.Paths.AnnotationDir)
	if c.Paths.AnnotationDir == "" {
		c.Paths.AnnotationDir = defaultAnnotationDir
	}
	if c.Paths.ResultsDir, err = expandPath(strings.TrimSpace(c.Paths.ResultsDir)); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	c.Engine.BinDir = strings.TrimSpace(c.Engine.BinDir)
	if c.Engine.BinDir == "" {
		if value, ok := os.LookupEnv("IMGSIM_ENGINE_BIN_DIR"); ok {
			c.Engine.BinDir = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Engine.BinDir, err = expandPath(c.Engine.BinDir); err != nil {
		return fmt.Errorf("engine.bin_dir: %w", err)
	}
	if c.Engine.ParamsFile, err = expandPath(strings.TrimSpace(c.Engine.ParamsFile)); err != nil {
		return fmt.Errorf("engine.params_file: %w", err)
	}
	c.Engine.ExtractBinary = fallback(c.Engine.ExtractBinary, defaultExtractBinary)
	c.Engine.IndexBinary = fallback(c.Engine.IndexBinary, defaultIndexBinary)
	c.Engine.MatchBinary = fallback(c.Engine.MatchBinary, defaultMatchBinary)
	c.Engine.RetrieveBinary = fallback(c.Engine.RetrieveBinary, defaultRetrieveBinary)
	c.Engine.Mode = fallback(c.Engine.Mode, defaultEngineMode)
	if c.Engine.TimeoutSeconds == 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeout
	}
	if c.Engine.BreakerFailures == 0 {
		c.Engine.BreakerFailures = defaultBreakerFailures
	}
	return nil
}

func (c *Config) normalizeArtifacts() {
	exts := make([]string, 0, len(c.Artifacts.ImageExtensions))
	seen := make(map[string]struct{}, len(c.Artifacts.ImageExtensions))
	for _, ext := range c.Artifacts.ImageExtensions {
		// Suffix matching stays case-sensitive; only whitespace is trimmed.
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{defaultImageExtension}
	}
	c.Artifacts.ImageExtensions = exts
	c.Artifacts.FeatureSuffix = fallback(c.Artifacts.FeatureSuffix, defaultFeatureSuffix)
	c.Artifacts.ImageListName = fallback(c.Artifacts.ImageListName, defaultImageListName)
	c.Artifacts.IndexName = fallback(c.Artifacts.IndexName, defaultIndexName)
	c.Artifacts.GroundTruthName = fallback(c.Artifacts.GroundTruthName, defaultGroundTruthName)
	c.Artifacts.RetrievalTraceSuffix = fallback(c.Artifacts.RetrievalTraceSuffix, defaultRetrievalTraceSuffix)
	c.Artifacts.MatchTraceSuffix = fallback(c.Artifacts.MatchTraceSuffix, defaultMatchTraceSuffix)
	c.Artifacts.MetadataSuffix = fallback(c.Artifacts.MetadataSuffix, defaultMetadataSuffix)
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers()
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(fallback(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(fallback(c.Logging.Level, defaultLogLevel))
}

func fallback(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
