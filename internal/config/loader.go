// Package config provides configuration management for the pitwall service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "PITWALL"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for every field, so the
// service can start from environment variables alone.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ReloadFromEnv reloads the configuration from PITWALL_CONFIG_PATH when it is set
func ReloadFromEnv(cfg *Config) error {
	envPath := os.Getenv(envPrefix + "_CONFIG_PATH")
	if envPath == "" {
		return nil
	}

	newCfg, err := LoadWithDefaults(envPath)
	if err != nil {
		return err
	}
	*cfg = *newCfg
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pitwall")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", "8081")

	v.SetDefault("openf1.base_url", "https://api.openf1.org")
	v.SetDefault("openf1.timeout_seconds", 10)
	v.SetDefault("openf1.max_retries", 2)
	v.SetDefault("openf1.rate_limit_per_second", 3.0)
	v.SetDefault("openf1.circuit_breaker_max", 5)

	v.SetDefault("jolpica.base_url", "https://api.jolpi.ca")
	v.SetDefault("jolpica.timeout_seconds", 15)
	v.SetDefault("jolpica.max_retries", 3)
	v.SetDefault("jolpica.rate_limit_per_second", 4.0)
	v.SetDefault("jolpica.circuit_breaker_max", 5)

	v.SetDefault("predictor.mode", "process")
	v.SetDefault("predictor.command", "python3")
	v.SetDefault("predictor.timeout_ms", MaxPredictorTimeoutMillis)

	v.SetDefault("cache.prediction_ttl_seconds", 30)
	v.SetDefault("cache.session_ttl_seconds", 60)

	v.SetDefault("reference_cache.backend", "memory")
	v.SetDefault("reference_cache.ttl_seconds", 300)
	v.SetDefault("reference_cache.redis.host", "localhost")
	v.SetDefault("reference_cache.redis.port", 6379)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.prewarm_interval_seconds", 30)
	v.SetDefault("scheduler.reference_refresh_cron", "*/5 * * * *")

	v.SetDefault("notify.websocket_enabled", true)
	v.SetDefault("notify.mqtt.client_id", "pitwall")
	v.SetDefault("notify.mqtt.topic", "pitwall/predictions")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
