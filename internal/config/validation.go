// Package config provides configuration management for the pitwall service.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Predictor modes
const (
	PredictorModeProcess  = "process"
	PredictorModeGRPC     = "grpc"
	PredictorModeLogistic = "logistic"
	PredictorModeNone     = "none"
)

// Reference cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("predictormode", validatePredictorMode)
	v.RegisterValidation("cachebackend", validateCacheBackend)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validatePredictorMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case PredictorModeProcess, PredictorModeGRPC, PredictorModeLogistic, PredictorModeNone:
		return true
	default:
		return false
	}
}

func validateCacheBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case CacheBackendMemory, CacheBackendRedis:
		return true
	default:
		return false
	}
}

var mqttBrokerPattern = regexp.MustCompile(`^(tcp|ssl|ws|wss|mqtt|mqtts)://[^\s]+$`)

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	switch cfg.Predictor.Mode {
	case PredictorModeProcess:
		if cfg.Predictor.ScriptPath != "" && cfg.Predictor.Command == "" {
			return fmt.Errorf("predictor.command is required when predictor.script_path is set")
		}
	case PredictorModeGRPC:
		if cfg.Predictor.GRPCAddress == "" {
			return fmt.Errorf("predictor.grpc_address is required in grpc mode")
		}
	}

	if cfg.Predictor.TimeoutMillis > MaxPredictorTimeoutMillis {
		return fmt.Errorf("predictor.timeout_ms cannot exceed %d", MaxPredictorTimeoutMillis)
	}

	if cfg.ReferenceCache.Backend == CacheBackendRedis {
		if cfg.ReferenceCache.Redis.Host == "" || cfg.ReferenceCache.Redis.Port == 0 {
			return fmt.Errorf("reference_cache.redis host and port are required for the redis backend")
		}
	}

	if cfg.Notify.MQTT.Enabled {
		if !mqttBrokerPattern.MatchString(cfg.Notify.MQTT.BrokerURL) {
			return fmt.Errorf("notify.mqtt.broker_url must be a tcp://, ssl:// or ws:// URL, got %q", cfg.Notify.MQTT.BrokerURL)
		}
		if strings.TrimSpace(cfg.Notify.MQTT.Topic) == "" {
			return fmt.Errorf("notify.mqtt.topic is required when mqtt is enabled")
		}
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.PrewarmIntervalSeconds == 0 && cfg.Scheduler.ReferenceRefreshCron == "" {
		return fmt.Errorf("scheduler is enabled but no job is configured")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructNamespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "predictormode":
			fmt.Fprintf(&b, "- Field '%s' must be one of: process, grpc, logistic, none\n", field)
		case "cachebackend":
			fmt.Fprintf(&b, "- Field '%s' must be one of: memory, redis\n", field)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
