// Package config loads decor.yaml with DECOR_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sghaida/decor/wrap"
	"github.com/spf13/viper"
)

// Config is the decor command configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Timeout TimeoutConfig `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Trace   TraceConfig   `mapstructure:"trace"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TimeoutConfig configures wrap.Timeout.
type TimeoutConfig struct {
	Default time.Duration `mapstructure:"default"`
}

// BreakerConfig configures wrap.Breaker.
type BreakerConfig struct {
	Name             string        `mapstructure:"name"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

// MetricsConfig configures wrap.NewMetrics.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// TraceConfig configures the tracer used by wrap.Span.
type TraceConfig struct {
	ServiceName string `mapstructure:"service_name"`

	// Endpoint is an OTLP gRPC collector address; empty keeps spans in process.
	Endpoint string `mapstructure:"endpoint"`
}

// Wrap returns the breaker settings as a wrap.BreakerConfig.
func (b BreakerConfig) Wrap() wrap.BreakerConfig {
	return wrap.BreakerConfig{
		Name:             b.Name,
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
		MinRequests:      b.MinRequests,
	}
}

func setDefaults(v *viper.Viper) {
	def := wrap.DefaultBreakerConfig("decor")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("timeout.default", "1s")
	v.SetDefault("breaker.name", def.Name)
	v.SetDefault("breaker.max_requests", def.MaxRequests)
	v.SetDefault("breaker.interval", def.Interval)
	v.SetDefault("breaker.timeout", def.Timeout)
	v.SetDefault("breaker.failure_threshold", def.FailureThreshold)
	v.SetDefault("breaker.min_requests", def.MinRequests)
	v.SetDefault("metrics.namespace", "decor")
	v.SetDefault("trace.service_name", "decor")
	v.SetDefault("trace.endpoint", "")
}

// Load reads the configuration.
//
// With an empty path, decor.yaml (or decor.yml) is looked up in dir; a
// missing file is not an error and defaults apply. A non-empty path must
// exist. DECOR_LOG_LEVEL style variables override file values.
func Load(dir, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("decor")
		v.SetConfigType("yaml")
		if dir == "" {
			dir = "."
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("DECOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got: %s", cfg.Log.Format)
	}
	if cfg.Timeout.Default <= 0 {
		return fmt.Errorf("timeout.default must be positive, got: %s", cfg.Timeout.Default)
	}
	if cfg.Breaker.FailureThreshold <= 0 || cfg.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("breaker.failure_threshold must be in (0, 1], got: %g", cfg.Breaker.FailureThreshold)
	}
	return nil
}
