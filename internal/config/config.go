// Package config holds all pagesmith configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"pagesmith/internal/generate"
	"pagesmith/internal/render"
	"pagesmith/internal/review"

	"gopkg.in/yaml.v3"
)

// Config holds all pagesmith configuration.
type Config struct {
	// Generation model settings.
	Generation generate.Config `yaml:"generation"`

	// Headless browser settings.
	Render render.Config `yaml:"render"`

	// Vision review settings.
	Review review.Config `yaml:"review"`

	// Loop settings.
	Loop LoopConfig `yaml:"loop"`

	// Constraint set file. Empty means the built-in default set.
	ConstraintsPath string `yaml:"constraints_path"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// LoopConfig bounds the generate/validate/repair loop.
type LoopConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Generation: generate.DefaultConfig(""),
		Render:     render.DefaultConfig(),
		Review:     review.DefaultConfig(""),
		Loop:       LoopConfig{MaxIterations: 5},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults,
// and environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generation.APIKey = key
		c.Review.APIKey = key
	}
	if key := os.Getenv("PAGESMITH_API_KEY"); key != "" {
		c.Generation.APIKey = key
		c.Review.APIKey = key
	}
	if model := os.Getenv("PAGESMITH_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if bin := os.Getenv("PAGESMITH_CHROME_BIN"); bin != "" {
		c.Render.ChromeBin = bin
	}
	if v := os.Getenv("PAGESMITH_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Loop.MaxIterations = n
		}
	}
	if v := os.Getenv("PAGESMITH_DEBUG"); v == "1" || v == "true" {
		c.Logging.Debug = true
	}
}

// Validate checks the configuration for values the run cannot proceed without.
func (c *Config) Validate() error {
	if c.Generation.APIKey == "" {
		return fmt.Errorf("generation API key is required (set GEMINI_API_KEY)")
	}
	if c.Loop.MaxIterations < 1 {
		return fmt.Errorf("loop max_iterations must be at least 1")
	}
	if c.Render.MaxConcurrent < 1 {
		return fmt.Errorf("render max_concurrent must be at least 1")
	}
	return nil
}
