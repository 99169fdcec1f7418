package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var lookupEnv = func(key string) string {
	v, _ := os.LookupEnv(key)
	return strings.TrimSpace(v)
}

func loadYAML(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadDotEnv exports the variables of path that are not already set. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type envReader struct {
	err error
}

func (r *envReader) str(key string, dst *string) {
	if v := lookupEnv(key); v != "" {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	v := lookupEnv(key)
	if v == "" || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v := lookupEnv(key)
	if v == "" || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func (r *envReader) list(key string, dst *[]string) {
	if v := lookupEnv(key); v != "" {
		*dst = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyEnv(cfg *Config) error {
	r := &envReader{}

	r.str("HTTP_ADDR", &cfg.HTTPAddr)
	r.str("API_PREFIX", &cfg.APIPrefix)
	r.str("APP_ENV", &cfg.Environment)
	r.str("LOG_LEVEL", &cfg.LogLevel)

	r.str("JWT_ACCESS_SECRET", &cfg.JWTAccessSecret)
	r.str("JWT_REFRESH_SECRET", &cfg.JWTRefreshSecret)
	r.integer("JWT_ACCESS_TTL_MINUTES", &cfg.JWTAccessTTLMinutes)
	r.integer("JWT_REFRESH_TTL_DAYS", &cfg.JWTRefreshTTLDays)
	r.str("COOKIE_DOMAIN", &cfg.CookieDomain)

	r.integer("OTP_WINDOW_MINUTES", &cfg.OTPWindowMinutes)
	r.integer("OTP_COOLDOWN_SECONDS", &cfg.OTPCooldownSeconds)
	r.str("PASSWORD_ALGORITHM", &cfg.PasswordAlgorithm)
	r.boolean("REFRESH_REVOCATION", &cfg.RefreshRevocation)
	r.boolean("AUDIT_ENABLED", &cfg.AuditEnabled)
	r.boolean("METRICS_ENABLED", &cfg.MetricsEnabled)
	r.boolean("METRICS_OTEL", &cfg.MetricsOTel)

	r.str("DATABASE_DSN", &cfg.DatabaseDSN)
	r.str("REDIS_ADDR", &cfg.RedisAddr)
	r.str("REDIS_PASSWORD", &cfg.RedisPassword)
	r.integer("REDIS_DB", &cfg.RedisDB)
	r.str("REDIS_PREFIX", &cfg.RedisPrefix)

	r.str("MAIL_DRIVER", &cfg.MailDriver)
	r.str("MAIL_FROM", &cfg.MailFrom)
	r.str("MAIL_FROM_NAME", &cfg.MailFromName)
	r.str("SUPPORT_EMAIL", &cfg.SupportEmail)
	r.str("BRAND", &cfg.Brand)
	r.str("SMTP_HOST", &cfg.SMTPHost)
	r.integer("SMTP_PORT", &cfg.SMTPPort)
	r.str("SMTP_USERNAME", &cfg.SMTPUsername)
	r.str("SMTP_PASSWORD", &cfg.SMTPPassword)
	r.str("SENDGRID_API_KEY", &cfg.SendGridAPIKey)

	r.str("ADMIN_EMAIL", &cfg.AdminEmail)
	r.str("ADMIN_PASSWORD", &cfg.AdminPassword)

	r.list("CORS_ALLOWED_ORIGINS", &cfg.CORSAllowedOrigins)
	r.list("CORS_ALLOWED_METHODS", &cfg.CORSAllowedMethods)
	r.list("CORS_ALLOWED_HEADERS", &cfg.CORSAllowedHeaders)

	return r.err
}

type flagValues struct {
	configPath string
	envFile    string
	set        map[string]string
}

// parseFlags reads the command line. Only flags present in args override
// lower-priority sources.
//
//	-config string   YAML config file
//	-env-file string .env file (default ".env")
//	-addr string     HTTP listen address
//	-prefix string   API route prefix
//	-env string      deployment environment
//	-dsn string      Postgres DSN
//	-redis string    Redis address
//	-log-level string
func parseFlags(args []string) (*flagValues, error) {
	set := flag.NewFlagSet("storefront", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	out := &flagValues{set: map[string]string{}}

	set.StringVar(&out.configPath, "config", "", "YAML config file")
	set.StringVar(&out.envFile, "env-file", ".env", ".env file to load")
	for _, name := range []string{"addr", "prefix", "env", "dsn", "redis", "log-level"} {
		set.String(name, "", name)
	}

	if err := set.Parse(args); err != nil {
		return nil, err
	}
	set.Visit(func(f *flag.Flag) {
		out.set[f.Name] = f.Value.String()
	})
	return out, nil
}

func (f *flagValues) apply(cfg *Config) {
	for name, v := range f.set {
		switch name {
		case "addr":
			cfg.HTTPAddr = v
		case "prefix":
			cfg.APIPrefix = v
		case "env":
			cfg.Environment = v
		case "dsn":
			cfg.DatabaseDSN = v
		case "redis":
			cfg.RedisAddr = v
		case "log-level":
			cfg.LogLevel = v
		}
	}
}
