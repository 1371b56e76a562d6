// Package config provides configuration loading and validation for hyperdiff.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/safeconv"
)

// Sentinel validation errors.
var (
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidWorkers     = errors.New("batch workers must not be negative")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
	ErrInvalidBodyLimit   = errors.New("invalid server body limit")
)

const maxPort = 65535

// Config holds all configuration of hyperdiff.
type Config struct {
	Matcher       MatcherConfig       `mapstructure:"matcher"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Batch         BatchConfig         `mapstructure:"batch"`
}

// MatcherConfig holds the thresholds of a matching run.
type MatcherConfig struct {
	SizeThreshold   int    `mapstructure:"size_threshold"`
	SimThresholdNum int    `mapstructure:"sim_threshold_num"`
	SimThresholdDen int    `mapstructure:"sim_threshold_den"`
	Slicing         string `mapstructure:"slicing"`
	MinHeight       int    `mapstructure:"min_height"`
	LazyMemoEntries int    `mapstructure:"lazy_memo_entries"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize  string        `mapstructure:"max_body_size"`
	Port         int           `mapstructure:"port"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds tracing and metrics export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Environment  string  `mapstructure:"environment"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// BatchConfig holds batch-mode configuration.
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches hyperdiff.yaml in the usual places; a missing
// file is not an error then.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("hyperdiff")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/hyperdiff")
	}

	viperCfg.SetEnvPrefix("HYPERDIFF")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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
	viperCfg.SetDefault("matcher.size_threshold", DefaultSizeThreshold)
	viperCfg.SetDefault("matcher.sim_threshold_num", DefaultSimThresholdNum)
	viperCfg.SetDefault("matcher.sim_threshold_den", DefaultSimThresholdDen)
	viperCfg.SetDefault("matcher.slicing", DefaultSlicing)
	viperCfg.SetDefault("matcher.min_height", DefaultMinHeight)
	viperCfg.SetDefault("matcher.lazy_memo_entries", DefaultLazyMemoEntries)

	viperCfg.SetDefault("server.host", DefaultServerHost)
	viperCfg.SetDefault("server.port", DefaultServerPort)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viperCfg.SetDefault("server.idle_timeout", DefaultServerIdleTimeout)
	viperCfg.SetDefault("server.max_body_size", DefaultServerMaxBodyBytes)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.debug_trace", false)

	viperCfg.SetDefault("batch.workers", DefaultBatchWorkers)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.MatcherConfig(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if _, err := c.Server.MaxBodyBytes(); err != nil {
		return err
	}

	if _, err := observability.ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Observability.SampleRatio)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Batch.Workers)
	}

	return nil
}

// MatcherConfig converts the matcher section into a validated run config.
func (c *Config) MatcherConfig() (matchers.Config, error) {
	mc := matchers.Config{
		SizeThreshold:   c.Matcher.SizeThreshold,
		SimThresholdNum: c.Matcher.SimThresholdNum,
		SimThresholdDen: c.Matcher.SimThresholdDen,
		Slicing:         matchers.SliceStrategy(c.Matcher.Slicing),
		MinHeight:       c.Matcher.MinHeight,
		LazyMemoEntries: c.Matcher.LazyMemoEntries,
	}

	if err := mc.Validate(); err != nil {
		return matchers.Config{}, err
	}

	return mc, nil
}

// ObservabilityConfig builds the observability settings of a mode.
func (c *Config) ObservabilityConfig(mode observability.AppMode, version string) observability.Config {
	oc := observability.DefaultConfig()
	oc.ServiceVersion = version
	oc.Mode = mode
	oc.Environment = c.Observability.Environment
	oc.OTLPEndpoint = c.Observability.OTLPEndpoint
	oc.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	oc.OTLPInsecure = c.Observability.OTLPInsecure
	oc.SampleRatio = c.Observability.SampleRatio
	oc.DebugTrace = c.Observability.DebugTrace
	oc.LogJSON = c.Logging.Format == "json"

	if level, err := observability.ParseLogLevel(c.Logging.Level); err == nil {
		oc.LogLevel = level
	}

	return oc
}

// MaxBodyBytes parses MaxBodySize ("16MB", "512KiB").
func (s ServerConfig) MaxBodyBytes() (int64, error) {
	n, err := humanize.ParseBytes(s.MaxBodySize)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBodyLimit, s.MaxBodySize)
	}

	return safeconv.MustUint64ToInt64(n), nil
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
