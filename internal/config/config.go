// Package config provides configuration management for clusterizer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/thebtf/clusterizer/internal/cluster"
	"github.com/thebtf/clusterizer/pkg/similarity"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAddr is the HTTP listen address for `clusterizer serve`.
	DefaultAddr = "127.0.0.1:7788"

	// DefaultMaxBodyBytes bounds POST /api/cluster request bodies.
	DefaultMaxBodyBytes = 8 << 20

	// DefaultMaxRecords bounds records per POST /api/cluster. Memory grows with
	// the square of this number.
	DefaultMaxRecords = 2000

	// DefaultMaxConcurrent bounds cluster requests served at once.
	DefaultMaxConcurrent = 4

	// DefaultReadTimeout bounds how long the server waits for a request.
	DefaultReadTimeout = 30 * time.Second

	// DefaultFormat is the report format.
	DefaultFormat = "text"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CLUSTERIZER_"
)

// ErrInvalidConfig is returned by Validate and by malformed env overrides.
var ErrInvalidConfig = errors.New("invalid config")

// EngineConfig mirrors cluster.Options in file form.
type EngineConfig struct {
	Metric            string  `yaml:"metric"`
	Cohesion          string  `yaml:"cohesion"`
	Collisions        string  `yaml:"collisions"`
	Ngram             int     `yaml:"ngram"`
	BaselineScore     float64 `yaml:"baseline_score"`
	SingletonCohesion float64 `yaml:"singleton_cohesion"`
	Trace             bool    `yaml:"trace"`
}

// SourceConfig configures record sources.
type SourceConfig struct {
	Query     string `yaml:"query"`
	Key       string `yaml:"key"`
	SkipBlank bool   `yaml:"skip_blank"`
}

// OutputConfig configures report rendering.
type OutputConfig struct {
	Format  string `yaml:"format"`
	MinSize int    `yaml:"min_size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	MaxRecords    int           `yaml:"max_records"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
}

// Config holds clusterizer configuration.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Source   SourceConfig `yaml:"source"`
	Output   OutputConfig `yaml:"output"`
	Server   ServerConfig `yaml:"server"`
	Engine   EngineConfig `yaml:"engine"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Engine: EngineConfig{
			Ngram:             cluster.DefaultShingleLength,
			Metric:            string(similarity.MetricDice),
			Cohesion:          string(cluster.CohesionMean),
			Collisions:        string(cluster.CollisionKeepAll),
			BaselineScore:     cluster.DefaultBaselineScore,
			SingletonCohesion: cluster.DefaultSingletonCohesion,
		},
		Source: SourceConfig{SkipBlank: true},
		Output: OutputConfig{Format: DefaultFormat, MinSize: 1},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxBodyBytes:  DefaultMaxBodyBytes,
			MaxRecords:    DefaultMaxRecords,
			MaxConcurrent: DefaultMaxConcurrent,
			ReadTimeout:   DefaultReadTimeout,
		},
	}
}

// DataDir returns the per-user data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".clusterizer")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path means DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from CLUSTERIZER_* variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"METRIC":       &c.Engine.Metric,
		"COHESION":     &c.Engine.Cohesion,
		"COLLISIONS":   &c.Engine.Collisions,
		"FORMAT":       &c.Output.Format,
		"ADDR":         &c.Server.Addr,
		"LOG_LEVEL":    &c.LogLevel,
		"SOURCE_QUERY": &c.Source.Query,
		"SOURCE_KEY":   &c.Source.Key,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "NGRAM"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sNGRAM=%q: %w", ErrInvalidConfig, EnvPrefix, v, err)
		}
		c.Engine.Ngram = n
	}

	floats := map[string]*float64{
		"BASELINE":           &c.Engine.BaselineScore,
		"SINGLETON_COHESION": &c.Engine.SingletonCohesion,
	}
	for name, dst := range floats {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalidConfig, EnvPrefix, name, v, err)
		}
		*dst = f
	}
	return nil
}

// EngineOptions converts the engine section into cluster.Options.
func (c *Config) EngineOptions() (cluster.Options, error) {
	metric, err := similarity.ParseMetric(c.Engine.Metric)
	if err != nil {
		return cluster.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cohesion, err := cluster.ParseCohesionMode(c.Engine.Cohesion)
	if err != nil {
		return cluster.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	collisions, err := cluster.ParseCollisionPolicy(c.Engine.Collisions)
	if err != nil {
		return cluster.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	opts := cluster.DefaultOptions()
	opts.ShingleLength = c.Engine.Ngram
	opts.Metric = metric
	opts.Cohesion = cohesion
	opts.Collisions = collisions
	opts.BaselineScore = c.Engine.BaselineScore
	opts.SingletonCohesion = c.Engine.SingletonCohesion
	opts.Trace = c.Engine.Trace
	return opts, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	opts, err := c.EngineOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: output format %q", ErrInvalidConfig, c.Output.Format)
	}
	if c.Output.MinSize < 0 {
		return fmt.Errorf("%w: negative min_size", ErrInvalidConfig)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	if c.Server.MaxRecords <= 0 {
		return fmt.Errorf("%w: max_records must be positive", ErrInvalidConfig)
	}
	if c.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: max_concurrent must be positive", ErrInvalidConfig)
	}
	return nil
}
