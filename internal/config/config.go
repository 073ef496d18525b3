// Package config loads service settings from a YAML file, then applies
// environment overrides on top of the defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tracker/internal/util"
)

// Config represents the service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr,omitempty"`

	// DBPath is the sqlite database file.
	DBPath string `yaml:"db_path,omitempty"`

	// Timezone names the location day boundaries fall in ("Local", "UTC", or an IANA name).
	Timezone string `yaml:"timezone,omitempty"`

	// RequestTimeout bounds a single report computation.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "data/tracker.db",
		Timezone:       "Local",
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads path when it exists, merges it over the defaults, and applies
// TRACKER_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fileCfg Config
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
			cfg.merge(fileCfg)
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.Addr = util.EnvOrDefault("TRACKER_ADDR", cfg.Addr)
	cfg.DBPath = util.EnvOrDefault("TRACKER_DB_PATH", cfg.DBPath)
	cfg.Timezone = util.EnvOrDefault("TRACKER_TIMEZONE", cfg.Timezone)
	cfg.LogLevel = util.EnvOrDefault("TRACKER_LOG_LEVEL", cfg.LogLevel)
	timeout, err := util.EnvDurationOrDefault("TRACKER_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout = timeout

	return cfg, nil
}

// merge applies non-empty values from other.
func (c *Config) merge(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.DBPath != "" {
		c.DBPath = other.DBPath
	}
	if other.Timezone != "" {
		c.Timezone = other.Timezone
	}
	if other.RequestTimeout > 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Timezone) {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level resolves LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
