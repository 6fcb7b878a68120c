// Package config loads rbset settings from an optional YAML file and RBSET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidThreshold   = errors.New("hibernation threshold must not be negative")
	ErrInvalidBenchKeys   = errors.New("bench keys must be positive")
)

const (
	envPrefix      = "RBSET"
	configName     = "rbset"
	maxSampleRatio = 1.0
)

// Config holds all rbset settings.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Tree      TreeConfig      `mapstructure:"tree"`
	Bench     BenchConfig     `mapstructure:"bench"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// OTLPHeaders is "key=value,key=value".
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// TreeConfig holds settings applied to every tree the CLI builds.
type TreeConfig struct {
	HibernationThreshold int  `mapstructure:"hibernation_threshold"`
	Verify               bool `mapstructure:"verify"`
}

// BenchConfig holds benchmark workload settings.
type BenchConfig struct {
	Keys int   `mapstructure:"keys"`
	Seed int64 `mapstructure:"seed"`
}

// SlogLevel parses Level.
func (lc LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, lc.Level)
	}

	return level, nil
}

// LoadConfig loads configuration from configPath, or from rbset.yaml in the
// working directory or $HOME/.config/rbset when configPath is empty, and
// overlays RBSET_* environment variables. A missing default file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	if configPath != "" {
		// An explicit path must exist; only the default lookup may come up empty.
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}

		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/rbset")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config

	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.environment", DefaultEnvironment)

	viperCfg.SetDefault("tree.verify", DefaultTreeVerify)
	viperCfg.SetDefault("tree.hibernation_threshold", DefaultTreeHibernationThreshold)

	viperCfg.SetDefault("bench.keys", DefaultBenchKeys)
	viperCfg.SetDefault("bench.seed", DefaultBenchSeed)
}

func validateConfig(cfg *Config) error {
	if _, err := cfg.Logging.SlogLevel(); err != nil {
		return err
	}

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > maxSampleRatio {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, cfg.Telemetry.SampleRatio)
	}

	if cfg.Tree.HibernationThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, cfg.Tree.HibernationThreshold)
	}

	if cfg.Bench.Keys <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBenchKeys, cfg.Bench.Keys)
	}

	return nil
}
