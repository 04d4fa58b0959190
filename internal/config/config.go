package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load to fields the file leaves unset.
const (
	DefaultPlaySpeedMs     = 500
	DefaultCanvasWidth     = 800
	DefaultCanvasHeight    = 600
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultAdvisorTimeout  = 30000
	DefaultAdvisorSeed     = 1
	DefaultBreakerRequests = 1
	DefaultBreakerInterval = 60000
	DefaultBreakerTimeout  = 30000
	DefaultBreakerRatio    = 0.6
)

// ProjectConfig holds project-level settings loaded from benzo.yml.
type ProjectConfig struct {
	Canvas      CanvasConfig  `yaml:"canvas,omitempty"`
	PlaySpeedMs int           `yaml:"playSpeedMs,omitempty"`
	LogLevel    string        `yaml:"logLevel,omitempty"`
	LogFormat   string        `yaml:"logFormat,omitempty"`
	ScriptsDir  string        `yaml:"scriptsDir,omitempty"`
	Advisor     AdvisorConfig `yaml:"advisor,omitempty"`
}

type CanvasConfig struct {
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
}

// AdvisorConfig selects the advisor. An empty Endpoint means the seeded mock.
type AdvisorConfig struct {
	Endpoint  string        `yaml:"endpoint,omitempty"`
	TimeoutMs int           `yaml:"timeoutMs,omitempty"`
	Seed      int64         `yaml:"seed,omitempty"`
	Breaker   BreakerConfig `yaml:"breaker,omitempty"`
}

type BreakerConfig struct {
	MaxRequests      uint32  `yaml:"maxRequests,omitempty"`
	IntervalMs       int     `yaml:"intervalMs,omitempty"`
	TimeoutMs        int     `yaml:"timeoutMs,omitempty"`
	FailureThreshold float64 `yaml:"failureThreshold,omitempty"`
}

// PlaySpeed returns the playback interval.
func (c *ProjectConfig) PlaySpeed() time.Duration {
	return time.Duration(c.PlaySpeedMs) * time.Millisecond
}

// Timeout returns the per-call advisor timeout.
func (c AdvisorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Default returns a config with every default applied.
func Default() *ProjectConfig {
	cfg := &ProjectConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ProjectConfig) applyDefaults() {
	if c.Canvas.Width <= 0 {
		c.Canvas.Width = DefaultCanvasWidth
	}
	if c.Canvas.Height <= 0 {
		c.Canvas.Height = DefaultCanvasHeight
	}
	if c.PlaySpeedMs <= 0 {
		c.PlaySpeedMs = DefaultPlaySpeedMs
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Advisor.TimeoutMs <= 0 {
		c.Advisor.TimeoutMs = DefaultAdvisorTimeout
	}
	if c.Advisor.Seed == 0 {
		c.Advisor.Seed = DefaultAdvisorSeed
	}
	b := &c.Advisor.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = DefaultBreakerRequests
	}
	if b.IntervalMs <= 0 {
		b.IntervalMs = DefaultBreakerInterval
	}
	if b.TimeoutMs <= 0 {
		b.TimeoutMs = DefaultBreakerTimeout
	}
	if b.FailureThreshold <= 0 {
		b.FailureThreshold = DefaultBreakerRatio
	}
}

// Load attempts to read benzo.yml or benzo.yaml from the given directory.
// Returns the defaults (not an error) if no config file exists. A relative
// scriptsDir is resolved against dir.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"benzo.yml", "benzo.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		cfg.applyDefaults()
		if cfg.ScriptsDir != "" && !filepath.IsAbs(cfg.ScriptsDir) {
			cfg.ScriptsDir = filepath.Join(dir, cfg.ScriptsDir)
		}
		return &cfg, nil
	}
	return Default(), nil
}
