package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail" validate:"required"`
	Notifier NotifierConfig `mapstructure:"notifier" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication and token-issuance settings.
// Each token kind carries its own validity duration.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// Validity durations, in minutes, per token kind.
	AccessTokenLifetimeMinutes       int `mapstructure:"access_token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes      int `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	VerificationTokenLifetimeMinutes int `mapstructure:"verification_token_lifetime_minutes" validate:"required,gt=0"`
	ResetTokenLifetimeMinutes        int `mapstructure:"reset_token_lifetime_minutes" validate:"required,gt=0"`
}

// MailConfig contains outbound mail settings.
type MailConfig struct {
	Host        string `mapstructure:"host" validate:"required"`
	Port        int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address" validate:"required,email"`
	FromName    string `mapstructure:"from_name"`

	// BaseURL is the externally visible URL used to build verification and
	// password-reset links.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// NotifierConfig controls the daily due-task reminder job.
type NotifierConfig struct {
	// Enabled turns the scheduled job on or off.
	Enabled bool `mapstructure:"enabled"`

	// Hour is the local hour of day (0-23) at which the daily scan runs.
	Hour int `mapstructure:"hour" validate:"gte=0,lte=23"`

	// Timezone is the IANA name of the reference time zone used both for
	// the run schedule and for computing the "tomorrow" window.
	Timezone string `mapstructure:"timezone" validate:"required"`
}
