package config

import "strings"

// Overrides holds command-line values that take precedence over the file.
// Empty fields leave the loaded value untouched.
type Overrides struct {
	RootDir    string
	Mode       string
	ParamsFile string
	LogLevel   string
	LogFormat  string
}

// Apply merges o into the configuration, then normalizes and validates the
// result again.
func (c *Config) Apply(o Overrides) error {
	if v := strings.TrimSpace(o.RootDir); v != "" {
		c.Paths.RootDir = v
	}
	if v := strings.TrimSpace(o.Mode); v != "" {
		c.Engine.Mode = v
	}
	if v := strings.TrimSpace(o.ParamsFile); v != "" {
		c.Engine.ParamsFile = v
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(o.LogFormat); v != "" {
		c.Logging.Format = v
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}
