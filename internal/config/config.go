// Package config provides configuration management for the pitwall service.
package config

import (
	"fmt"
	"time"
)

// MaxPredictorTimeoutMillis is the hard upper bound for one external estimator call
const MaxPredictorTimeoutMillis = 5000

// Config represents the complete application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app" validate:"required"`
	Server         ServerConfig         `mapstructure:"server" validate:"required"`
	Health         HealthConfig         `mapstructure:"health"`
	OpenF1         UpstreamConfig       `mapstructure:"openf1" validate:"required"`
	Jolpica        UpstreamConfig       `mapstructure:"jolpica" validate:"required"`
	Predictor      PredictorConfig      `mapstructure:"predictor" validate:"required"`
	Cache          CacheConfig          `mapstructure:"cache" validate:"required"`
	ReferenceCache ReferenceCacheConfig `mapstructure:"reference_cache" validate:"required"`
	Scheduler      SchedulerConfig      `mapstructure:"scheduler"`
	Notify         NotifyConfig         `mapstructure:"notify"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the public JSON API listener
type ServerConfig struct {
	Port                int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int      `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	CORSAllowedOrigins  []string `mapstructure:"cors_allowed_origins"`
}

// HealthConfig represents the health probe listener
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// UpstreamConfig represents one upstream REST provider
type UpstreamConfig struct {
	BaseURL            string  `mapstructure:"base_url" validate:"required,url"`
	APIToken           string  `mapstructure:"api_token"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries         int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	CircuitBreakerMax  int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// PredictorConfig represents the external estimator strategy
type PredictorConfig struct {
	Mode          string   `mapstructure:"mode" validate:"required,predictormode"`
	Command       string   `mapstructure:"command"`
	ScriptPath    string   `mapstructure:"script_path"`
	Args          []string `mapstructure:"args"`
	GRPCAddress   string   `mapstructure:"grpc_address"`
	TimeoutMillis int      `mapstructure:"timeout_ms" validate:"required,gt=0,lte=5000"`
}

// CacheConfig represents the prediction result cache
type CacheConfig struct {
	PredictionTTLSeconds int `mapstructure:"prediction_ttl_seconds" validate:"required,gt=0"`
	SessionTTLSeconds    int `mapstructure:"session_ttl_seconds" validate:"required,gt=0"`
}

// ReferenceCacheConfig represents the schedule/standings cache
type ReferenceCacheConfig struct {
	Backend    string      `mapstructure:"backend" validate:"required,cachebackend"`
	TTLSeconds int         `mapstructure:"ttl_seconds" validate:"required,gt=0"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents a Redis connection
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// SchedulerConfig represents background warm-up jobs
type SchedulerConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	PrewarmIntervalSeconds int    `mapstructure:"prewarm_interval_seconds" validate:"omitempty,gte=5"`
	ReferenceRefreshCron   string `mapstructure:"reference_refresh_cron"`
}

// NotifyConfig represents prediction fan-out
type NotifyConfig struct {
	WebsocketEnabled bool       `mapstructure:"websocket_enabled"`
	MQTT             MQTTConfig `mapstructure:"mqtt"`
}

// MQTTConfig represents the MQTT publisher
type MQTTConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BrokerURL string `mapstructure:"broker_url"`
	ClientID  string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Topic     string `mapstructure:"topic"`
	QoS       int    `mapstructure:"qos" validate:"gte=0,lte=2"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ListenAddress returns the API listen address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// PredictionTTL returns the result cache TTL
func (c *Config) PredictionTTL() time.Duration {
	return time.Duration(c.Cache.PredictionTTLSeconds) * time.Second
}

// SessionTTL returns how long a resolved "latest session" key is reused
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Cache.SessionTTLSeconds) * time.Second
}

// ReferenceTTL returns the schedule/standings cache TTL
func (c *Config) ReferenceTTL() time.Duration {
	return time.Duration(c.ReferenceCache.TTLSeconds) * time.Second
}

// PredictorTimeout returns the external estimator bound
func (c *Config) PredictorTimeout() time.Duration {
	return time.Duration(c.Predictor.TimeoutMillis) * time.Millisecond
}

// RedisAddress returns host:port for the reference cache
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.ReferenceCache.Redis.Host, c.ReferenceCache.Redis.Port)
}

// Timeout returns the per-request timeout
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}
