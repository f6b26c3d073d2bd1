package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values and use the TASKNEST_ prefix with underscores
// for nesting (e.g. TASKNEST_AUTH_JWT_SECRET).
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKNEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound, even
	// with AutomaticEnv. Secrets and connection strings land here.
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"mail.host",
		"mail.username",
		"mail.password",
		"mail.from_address",
		"mail.base_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env key %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for everything that has a sane one.
// Secrets and connection strings deliberately have no default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.access_token_lifetime_minutes", 24*60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 7*24*60)
	v.SetDefault("auth.verification_token_lifetime_minutes", 30)
	v.SetDefault("auth.reset_token_lifetime_minutes", 30)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from_name", "Tasknest")

	v.SetDefault("notifier.enabled", true)
	v.SetDefault("notifier.hour", 0)
	v.SetDefault("notifier.timezone", "UTC")
}
