// Package config loads, normalizes, and validates imgsim configuration.
//
// Configuration is TOML. Load resolves an explicit path first, then
// ~/.config/imgsim/config.toml, then ./imgsim.toml, and falls back to
// Default when none exist. Every path is expanded to an absolute path during
// normalization so downstream packages never deal with "~" or relative
// directories.
package config
