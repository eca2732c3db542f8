// Package config holds the analysis configuration: a YAML file with one
// section per pipeline stage, environment overrides for logging and storage
// paths, and the defaults of every stage.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gel-analyzer/internal/band"
	"gel-analyzer/internal/lane"
	"gel-analyzer/internal/phylo"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvLogLevel     = "GELANALYZER_LOG_LEVEL"
	EnvLogFile      = "GELANALYZER_LOG_FILE"
	EnvStandardsDir = "GELANALYZER_STANDARDS_DIR"
)

// Background estimators selectable in Lanes.Background.
const (
	BackgroundMeanGap = "mean-gap"
	BackgroundMidGap  = "mid-gap"
	BackgroundNone    = "none"
)

// Config holds all configuration values.
type Config struct {
	Lanes    LaneConfig    `yaml:"lanes"`
	Bands    band.Params   `yaml:"bands"`
	Matching MatchConfig   `yaml:"matching"`
	Weights  WeightConfig  `yaml:"weights"`
	Tree     TreeConfig    `yaml:"tree"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LaneConfig configures lane segmentation and background removal.
type LaneConfig struct {
	lane.Params `yaml:",inline"`
	Background  string `yaml:"background"`
}

// MatchConfig configures band matching. Distance is a percentage of the
// image height.
type MatchConfig struct {
	Distance    float64 `yaml:"distance"`
	MarkerLanes []int   `yaml:"marker_lanes,omitempty"`
}

// WeightConfig selects the ladder used for weight estimation.
type WeightConfig struct {
	Standard     string `yaml:"standard,omitempty"`
	MarkerLane   int    `yaml:"marker_lane"`
	StandardsDir string `yaml:"standards_dir,omitempty"`
}

// TreeConfig selects the tree building method and the lane names shown in
// the tree. Labels are indexed by lane; empty entries keep the default name.
type TreeConfig struct {
	Method string   `yaml:"method"`
	Labels []string `yaml:"labels,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Lanes:    LaneConfig{Params: lane.DefaultParams(), Background: BackgroundMeanGap},
		Bands:    band.DefaultParams(),
		Matching: MatchConfig{Distance: 2},
		Weights:  WeightConfig{MarkerLane: 0},
		Tree:     TreeConfig{Method: phylo.NJ.String()},
		Logging:  LoggingConfig{Level: "INFO"},
	}
}

// Load reads a YAML configuration file over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Logging.Level = getEnv(EnvLogLevel, c.Logging.Level)
	c.Logging.File = getEnv(EnvLogFile, c.Logging.File)
	c.Weights.StandardsDir = getEnv(EnvStandardsDir, c.Weights.StandardsDir)
}

// Validate checks values that the stages cannot interpret.
func (c *Config) Validate() error {
	switch c.Lanes.Background {
	case BackgroundMeanGap, BackgroundMidGap, BackgroundNone:
	default:
		return fmt.Errorf("unknown background estimator %q", c.Lanes.Background)
	}
	if _, err := phylo.ParseMethod(c.Tree.Method); err != nil {
		return err
	}
	if c.Matching.Distance < 0 {
		return fmt.Errorf("match distance %g is negative", c.Matching.Distance)
	}
	return nil
}

// TreeMethod returns the parsed tree method.
func (c *Config) TreeMethod() phylo.Method {
	m, err := phylo.ParseMethod(c.Tree.Method)
	if err != nil {
		return phylo.NJ
	}
	return m
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
