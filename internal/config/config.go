// Package config handles runtime configuration for hulapatch. Settings
// come from an optional hulapatch.yaml next to the working directory, with
// environment overrides for the two values people actually change in the
// field: where pyhula lives and which interpreter to use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-directory configuration file.
const FileName = "hulapatch.yaml"

// Environment overrides, checked after the config file.
const (
	EnvInstallRoot = "HULAPATCH_PYHULA_PATH"
	EnvPython      = "HULAPATCH_PYTHON"
)

const (
	defaultPython        = "python"
	defaultVerifyTimeout = 20
	minimumVerifyTimeout = 1
)

// VerifyConfig captures post-patch verification preferences.
type VerifyConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Config holds the runtime configuration for hulapatch.
type Config struct {
	// InstallRoot pins the pyhula installation directory. Empty means
	// discover it through the interpreter.
	InstallRoot string `yaml:"install_root"`

	// Python is the interpreter used for discovery and verification.
	Python string `yaml:"python"`

	Verify VerifyConfig `yaml:"verify"`

	// Plain disables styled output in the console report.
	Plain bool `yaml:"plain"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Python: defaultPython,
		Verify: VerifyConfig{TimeoutSeconds: defaultVerifyTimeout},
	}
}

// Load reads dir/hulapatch.yaml when present, applies environment
// overrides, and validates the result. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.normalize(dir)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// VerifyTimeout returns the verification deadline as a duration.
func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.Verify.TimeoutSeconds) * time.Second
}

func (c *Config) applyEnv() {
	if root := strings.TrimSpace(os.Getenv(EnvInstallRoot)); root != "" {
		c.InstallRoot = root
	}
	if python := strings.TrimSpace(os.Getenv(EnvPython)); python != "" {
		c.Python = python
	}
}

func (c *Config) normalize(base string) {
	c.Python = strings.TrimSpace(c.Python)
	if c.Python == "" {
		c.Python = defaultPython
	}
	c.InstallRoot = strings.TrimSpace(c.InstallRoot)
	if c.InstallRoot != "" && !filepath.IsAbs(c.InstallRoot) {
		c.InstallRoot = filepath.Clean(filepath.Join(base, c.InstallRoot))
	}
	if c.Verify.TimeoutSeconds == 0 {
		c.Verify.TimeoutSeconds = defaultVerifyTimeout
	}
}

func (c *Config) validate() error {
	if c.Verify.TimeoutSeconds < minimumVerifyTimeout {
		return fmt.Errorf("verify.timeout_seconds must be >= %d", minimumVerifyTimeout)
	}
	return nil
}
