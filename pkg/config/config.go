// Package config loads jarfang settings from .jarfang.yaml, JARFANG_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
	"github.com/Sumatoshi-tech/jarfang/pkg/report"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers      = errors.New("analysis workers must not be negative")
	ErrInvalidMaxClassSize = errors.New("invalid max class size")
	ErrInvalidTopClasses   = errors.New("top classes must be positive")
)

// File lookup.
const (
	FileName  = ".jarfang"
	EnvPrefix = "JARFANG"
)

const maxClassSizeLimit = 1 << 40

// Config holds all jarfang settings.
type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AnalysisConfig controls archive processing.
type AnalysisConfig struct {
	MaxClassSize   string `mapstructure:"max_class_size"`
	Workers        int    `mapstructure:"workers"`
	TopClasses     int    `mapstructure:"top_classes"`
	Strict         bool   `mapstructure:"strict"`
	IncludeClasses bool   `mapstructure:"include_classes"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// CacheConfig controls the parsed-class cache.
type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	Enabled bool   `mapstructure:"enabled"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
}

// Option customizes LoadConfig.
type Option func(*viper.Viper) error

// WithFlags binds config keys to command-line flags. A flag overrides the
// file and environment only when it was set explicitly.
func WithFlags(flags *pflag.FlagSet, keyToFlag map[string]string) Option {
	return func(v *viper.Viper) error {
		for key, name := range keyToFlag {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}

			err := v.BindPFlag(key, flag)
			if err != nil {
				return fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}

		return nil
	}
}

// LoadConfig reads configPath, or .jarfang.yaml from the working directory
// or $HOME when configPath is empty, then applies environment overrides and
// validates the result. A missing default file is not an error.
func LoadConfig(configPath string, opts ...Option) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(FileName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	for _, opt := range opts {
		err := opt(viperCfg)
		if err != nil {
			return nil, err
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("analysis.workers", DefaultAnalysisWorkers)
	viperCfg.SetDefault("analysis.max_class_size", DefaultAnalysisMaxClassSize)
	viperCfg.SetDefault("analysis.strict", DefaultAnalysisStrict)
	viperCfg.SetDefault("analysis.include_classes", DefaultAnalysisIncludeClasses)
	viperCfg.SetDefault("analysis.top_classes", DefaultAnalysisTopClasses)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.no_color", DefaultOutputNoColor)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.dir", DefaultCacheDir)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.metrics_textfile", DefaultTelemetryMetricsTextfile)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Analysis.Workers)
	}

	_, err := c.MaxClassSizeBytes()
	if err != nil {
		return err
	}

	if c.Analysis.TopClasses <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopClasses, c.Analysis.TopClasses)
	}

	err = report.ValidateFormat(c.Output.Format)
	if err != nil {
		return err
	}

	_, err = observability.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}

	return nil
}

// MaxClassSizeBytes parses analysis.max_class_size ("16MiB", "512 kB").
func (c *Config) MaxClassSizeBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.Analysis.MaxClassSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxClassSize, c.Analysis.MaxClassSize, err)
	}

	if size == 0 || size > maxClassSizeLimit {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxClassSize, c.Analysis.MaxClassSize)
	}

	return int64(size), nil
}

// Observability maps logging and telemetry settings onto an observability
// config for the given run mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.Mode = mode
	cfg.ServiceVersion = version
	cfg.LogJSON = c.Logging.JSON
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	cfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	cfg.MetricsTextfile = c.Telemetry.MetricsTextfile

	level, err := observability.ParseLevel(c.Logging.Level)
	if err == nil {
		cfg.LogLevel = level
	}

	return cfg
}
