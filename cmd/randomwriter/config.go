package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Config holds the settings that can be supplied through a config file or
// the environment. Flags given on the command line take precedence over both.
type Config struct {
	LogLevel   string `json:"log_level" yaml:"log_level"`
	Seed       uint64 `json:"seed" yaml:"seed"` // 0 picks a random seed
	ScratchDB  bool   `json:"scratch_db" yaml:"scratch_db"`
	ScratchDir string `json:"scratch_dir" yaml:"scratch_dir"`
	DumpPath   string `json:"dump_path" yaml:"dump_path"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "warn",
		Seed:       0,
		ScratchDB:  false,
		ScratchDir: "",
		DumpPath:   "",
	}
}

// Environment variables that override config file values.
const (
	envLogLevel   = "RANDOMWRITER_LOG_LEVEL"
	envSeed       = "RANDOMWRITER_SEED"
	envScratchDB  = "RANDOMWRITER_SCRATCH_DB"
	envScratchDir = "RANDOMWRITER_SCRATCH_DIR"
)

// LoadConfig reads the configuration from a JSON or YAML file, chosen by the
// file extension. An empty path yields the defaults. If the file doesn't
// exist, it is created with the default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Warn instead of failing, the run can still use the defaults.
				slog.Warn("Failed to write default config file", "path", path, "error", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides config values with those found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(envSeed); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envSeed, v, err)
		}
		c.Seed = seed
	}
	if v, ok := lookup(envScratchDB); ok && v != "" {
		scratch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envScratchDB, v, err)
		}
		c.ScratchDB = scratch
	}
	if v, ok := lookup(envScratchDir); ok && v != "" {
		c.ScratchDir = v
	}
	return nil
}

// Level maps the configured level name to a slog.Level, defaulting to warn.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
