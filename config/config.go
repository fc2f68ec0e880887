package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. PATIENTS_SOURCE_URL.
const EnvPrefix = "PATIENTS"

type ServerConfig struct {
	Port         int           `mapstructure:"port" envconfig:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
}

type SourceConfig struct {
	URL     string        `mapstructure:"url" envconfig:"url"`
	Timeout time.Duration `mapstructure:"timeout" envconfig:"timeout"`
}

type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" envconfig:"max_failures"`
	Interval    time.Duration `mapstructure:"interval" envconfig:"interval"`
	Timeout     time.Duration `mapstructure:"timeout" envconfig:"timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int     `mapstructure:"burst" envconfig:"burst"`
}

type CacheConfig struct {
	ViewTTL time.Duration `mapstructure:"view_ttl" envconfig:"view_ttl"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"url"`
	Channel      string        `mapstructure:"channel" envconfig:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"pool_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"level"`
}

type MonitoringConfig struct {
	Namespace   string `mapstructure:"namespace" envconfig:"namespace"`
	MetricsPath string `mapstructure:"metrics_path" envconfig:"metrics_path"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server" envconfig:"server"`
	Source     SourceConfig     `mapstructure:"source" envconfig:"source"`
	Breaker    BreakerConfig    `mapstructure:"breaker" envconfig:"breaker"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" envconfig:"rate_limit"`
	Cache      CacheConfig      `mapstructure:"cache" envconfig:"cache"`
	Redis      RedisConfig      `mapstructure:"redis" envconfig:"redis"`
	Log        LogConfig        `mapstructure:"log" envconfig:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" envconfig:"monitoring"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("source.url", "https://63bedcf7f5cfc0949b634fc8.mockapi.io/users")
	v.SetDefault("source.timeout", 15*time.Second)

	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("cache.view_ttl", 5*time.Minute)

	v.SetDefault("redis.channel", "patients.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")

	v.SetDefault("monitoring.namespace", "patients")
	v.SetDefault("monitoring.metrics_path", "/metrics")
}

// LoadConfig reads config.yml (optional) from path or the usual locations,
// applies defaults, then PATIENTS_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}
