// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"letsblog/internal/observability"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port               string  `mapstructure:"PORT" validate:"required,numeric"`
	Env                string  `mapstructure:"APP_ENV" validate:"required,oneof=development test production prod"`
	LogLevel           string  `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	JWTSecret          string  `mapstructure:"JWT_SECRET" validate:"required"`
	RedisURL           string  `mapstructure:"REDIS_URL"`
	AllowedOrigins     string  `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags       string  `mapstructure:"FEATURE_FLAGS" validate:"flaglist"`
	SeedDemoPosts      int     `mapstructure:"SEED_DEMO_POSTS" validate:"gte=0,lte=10000"`
	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER" validate:"oneof=stdout otlp"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT" validate:"required_if=TracingExporter otlp"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO" validate:"gte=0,lte=1"`
	RateLimitEnabled   bool    `mapstructure:"RATE_LIMIT_ENABLED"`
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("flaglist", validateFlagList)
	return v
}

// validateFlagList accepts a comma-separated list of name=value pairs.
func validateFlagList(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			return false
		}
	}
	return true
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	v.SetDefault("FEATURE_FLAGS", "")
	v.SetDefault("SEED_DEMO_POSTS", 0)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
}

// LoadConfig loads configuration from a .env file, config.yml, an optional
// config.<APP_ENV>.yml profile and environment variables, in increasing
// order of precedence. Search paths default to the working directory and
// its parents.
func LoadConfig(searchPaths ...string) (*Config, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "..", "../.."}
	}

	// .env never overrides variables already set in the environment.
	for _, dir := range searchPaths {
		if err := godotenv.Load(strings.TrimSuffix(dir, "/") + "/.env"); err == nil {
			break
		}
	}

	v := viper.New()
	for _, dir := range searchPaths {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	// The base file is optional.
	_ = v.ReadInConfig()

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) || env == "production" || env == "prod" {
				return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not loaded: %w", env, err)
			}
		} else {
			observability.Logger.Info("Loaded profile-specific configuration", "file", "config."+env+".yml")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.Env = strings.ToLower(strings.TrimSpace(config.Env))
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.AllowedOrigins == "*" {
			observability.Logger.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		observability.Logger.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// TracingConfig returns the tracer settings for this configuration.
func (c *Config) TracingConfig(serviceName, version string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Env,
		Enabled:        c.TracingEnabled,
		Exporter:       c.TracingExporter,
		OTLPEndpoint:   c.OTLPEndpoint,
		SamplerRatio:   c.TracingSampleRatio,
	}
}
