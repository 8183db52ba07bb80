package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	mode, err := strconv.Atoi(c.Engine.Mode)
	if err != nil || mode < 0 {
		return fmt.Errorf("engine.mode must be a non-negative integer, got %q", c.Engine.Mode)
	}
	if c.Engine.MatchType < 0 || c.Engine.MatchType > 3 {
		return errors.New("engine.match_type must be between 0 and 3")
	}
	if err := ensurePositiveMap(map[string]int{
		"engine.timeout_seconds":  c.Engine.TimeoutSeconds,
		"engine.breaker_failures": c.Engine.BreakerFailures,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if len(c.Artifacts.ImageExtensions) == 0 {
		return errors.New("artifacts.image_extensions must include at least one extension")
	}
	for key, value := range map[string]string{
		"artifacts.image_list_name":   c.Artifacts.ImageListName,
		"artifacts.index_name":        c.Artifacts.IndexName,
		"artifacts.ground_truth_name": c.Artifacts.GroundTruthName,
	} {
		if strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("%s must be a bare file name, got %q", key, value)
		}
	}
	if c.Artifacts.RetrievalTraceSuffix == c.Artifacts.MatchTraceSuffix {
		return errors.New("artifacts.retrieval_trace_suffix and artifacts.match_trace_suffix must differ")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	return nil
}

func (c *Config) validateRender() error {
	switch c.Render.Columns {
	case 4, 14:
		return nil
	default:
		return fmt.Errorf("render.columns must be 4 or 14, got %d", c.Render.Columns)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
