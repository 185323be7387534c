// Package config assembles the application configuration from CLI flags,
// environment variables and an optional .env file, and validates the result.
// Priority: environment > CLI flags > defaults.
package config

import (
	"errors"
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the bookmarks service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	BaseURL             string        `env:"BASE_URL" validate:"url"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_KEY" validate:"required,base64url"`
	SessionTTL                 time.Duration `env:"SESSION_TTL"`

	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthAuthURL      string `env:"OAUTH_AUTH_URL" validate:"url"`
	OAuthTokenURL     string `env:"OAUTH_TOKEN_URL" validate:"url"`
	OAuthUserInfoURL  string `env:"OAUTH_USERINFO_URL" validate:"url"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	FeedHeartbeat time.Duration `env:"FEED_HEARTBEAT"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	BaseURL:             "http://localhost:8080",
	LogLevel:            "info",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/bookmarks/migrations",

	AuthCookieName: "bookmarks_session",
	// Development-only key. Override in any real deployment.
	AuthCookieSigningSecretKey: "c3VwZXJzZWNyZXRrZXk=",
	SessionTTL:                 24 * time.Hour,

	OAuthAuthURL:     "https://accounts.google.com/o/oauth2/auth",
	OAuthTokenURL:    "https://oauth2.googleapis.com/token",
	OAuthUserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",

	FeedHeartbeat: 25 * time.Second,
}

// ErrOAuthCredentialsMissing is returned when only one half of the OAuth
// client credential pair is configured.
var ErrOAuthCredentialsMissing = errors.New("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET must be set together")

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	if (c.OAuthClientID == "") != (c.OAuthClientSecret == "") {
		return ErrOAuthCredentialsMissing
	}

	return validate.Struct(c)
}

// OAuthEnabled reports whether identity provider credentials are configured.
// Without them the login flow cannot complete and /auth/login answers 503.
func (c *Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// InitOption configures the behavior of New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing turns off CLI flag registration.
// Used by tests where the flag package would collide with the test runner.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func applyDefaults(target *Config, defaults Config) {
	*target = defaults
}

// New builds a validated Config from defaults, flags and environment.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.BaseURL, "b", values.BaseURL, "public base URL of the service")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "a string with the database connection details")
		flag.StringVar(&values.RedisAddr, "r", values.RedisAddr, "redis address for cross-instance change feed fan-out")
		flag.Parse()
	}

	err = env.Parse(values)
	if err != nil {
		return nil, err
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
