// Package config loads the storefront server settings.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional YAML file (-config flag or CONFIG env), a .env file, process
// environment variables and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Mail drivers.
const (
	MailDriverLog      = "log"
	MailDriverSMTP     = "smtp"
	MailDriverSendGrid = "sendgrid"
)

// ErrInvalid wraps every configuration error returned by [Load].
var ErrInvalid = errors.New("invalid server config")

// Config holds runtime settings for the storefront server. Secrets are hex
// strings; see [Config.Engine].
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	APIPrefix   string `yaml:"api_prefix"`
	Environment string `yaml:"app_env"`
	LogLevel    string `yaml:"log_level"`

	JWTAccessSecret     string `yaml:"jwt_access_secret"`
	JWTRefreshSecret    string `yaml:"jwt_refresh_secret"`
	JWTAccessTTLMinutes int    `yaml:"jwt_access_ttl_minutes"`
	JWTRefreshTTLDays   int    `yaml:"jwt_refresh_ttl_days"`
	CookieDomain        string `yaml:"cookie_domain"`

	OTPWindowMinutes   int    `yaml:"otp_window_minutes"`
	OTPCooldownSeconds int    `yaml:"otp_cooldown_seconds"`
	PasswordAlgorithm  string `yaml:"password_algorithm"`
	RefreshRevocation  bool   `yaml:"refresh_revocation"`
	AuditEnabled       bool   `yaml:"audit_enabled"`
	MetricsEnabled     bool   `yaml:"metrics_enabled"`
	MetricsOTel        bool   `yaml:"metrics_otel"`

	// DatabaseDSN selects Postgres. Empty keeps everything in memory.
	DatabaseDSN string `yaml:"database_dsn"`
	// RedisAddr enables the Redis OTP store, cooldowns and revocation.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	MailDriver     string `yaml:"mail_driver"`
	MailFrom       string `yaml:"mail_from"`
	MailFromName   string `yaml:"mail_from_name"`
	SupportEmail   string `yaml:"support_email"`
	Brand          string `yaml:"brand"`
	SMTPHost       string `yaml:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port"`
	SMTPUsername   string `yaml:"smtp_username"`
	SMTPPassword   string `yaml:"smtp_password"`
	SendGridAPIKey string `yaml:"sendgrid_api_key"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	CORSAllowedMethods []string `yaml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `yaml:"cors_allowed_headers"`
}

// LoadDefaults populates c with development defaults. Secrets stay empty.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":9091"
	c.APIPrefix = "/api/v1"
	c.Environment = "development"
	c.LogLevel = "info"
	c.JWTAccessTTLMinutes = 15
	c.JWTRefreshTTLDays = 7
	c.OTPWindowMinutes = 30
	c.OTPCooldownSeconds = 30
	c.PasswordAlgorithm = "argon2id"
	c.MetricsEnabled = true
	c.RedisPrefix = "sf"
	c.MailDriver = MailDriverLog
	c.MailFrom = "no-reply@shoppy.local"
	c.MailFromName = "Shoppy"
	c.SupportEmail = "support@shoppy.local"
	c.SMTPPort = 587
}

// Load builds a Config from every source. args are the command-line
// arguments without the program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fl, err := parseFlags(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	path := fl.configPath
	if path == "" {
		path = lookupEnv("CONFIG")
	}
	if path != "" {
		if err := loadYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	if err := loadDotEnv(fl.envFile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	fl.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that the engine does not check itself.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%w: HTTP_ADDR is empty", ErrInvalid)
	}
	if c.JWTAccessTTLMinutes <= 0 || c.JWTRefreshTTLDays <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrInvalid)
	}
	if c.OTPWindowMinutes <= 0 || c.OTPCooldownSeconds < 0 {
		return fmt.Errorf("%w: bad otp timing", ErrInvalid)
	}

	switch c.MailDriver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("%w: SMTP_HOST is required for the smtp mail driver", ErrInvalid)
		}
	case MailDriverSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("%w: SENDGRID_API_KEY is required for the sendgrid mail driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown MAIL_DRIVER %q", ErrInvalid, c.MailDriver)
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("%w: ADMIN_EMAIL and ADMIN_PASSWORD must be set together", ErrInvalid)
	}
	if c.RefreshRevocation && c.RedisAddr == "" {
		return fmt.Errorf("%w: REFRESH_REVOCATION requires REDIS_ADDR", ErrInvalid)
	}
	return nil
}
