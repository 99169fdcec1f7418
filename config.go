package storefront

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Config holds every tunable of the [Engine]. Start from [DefaultConfig] and
// override what differs; [Builder.Build] calls [Config.Validate].
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	OTP      OTPConfig
	Password PasswordConfig
	Refresh  RefreshConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. Both secrets are HS256 keys of at least
// 32 bytes and must differ.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the cookie transport.
type SessionConfig struct {
	// Environment is the deployment name. "production" turns on Secure cookies.
	Environment  string
	CookieDomain string
}

// Secure reports whether cookies must carry the Secure attribute.
func (s SessionConfig) Secure() bool {
	return strings.EqualFold(strings.TrimSpace(s.Environment), EnvProduction)
}

// EnvProduction is the environment name that enables Secure cookies.
const EnvProduction = "production"

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls one-time code lifetime and request throttling.
type OTPConfig struct {
	// Window is how long an issued code stays valid.
	Window time.Duration
	// RequestCooldown is the minimum spacing between code requests for one
	// email and purpose. Enforced only when a Redis client is configured.
	RequestCooldown time.Duration
	// MaxRequestsPerIP bounds requests from one client IP per cooldown
	// window. Zero disables the IP throttle.
	MaxRequestsPerIP int
	RedisPrefix      string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// Supported password hashing algorithms.
const (
	HashArgon2id = "argon2id"
	HashBcrypt   = "bcrypt"
)

// PasswordConfig selects and tunes the password hasher.
type PasswordConfig struct {
	Algorithm      string
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	BcryptCost     int
	UpgradeOnLogin bool
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls server-side refresh token tracking. With
// RevocationEnabled every rotated refresh token is recorded and rejected on
// reuse. Requires a Redis client.
type RefreshConfig struct {
	RevocationEnabled bool
	RedisPrefix       string
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// FailureGrace bounds how long a failed-outcome event waits for buffer
	// space before DropIfFull sheds it.
	FailureGrace time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT secrets are left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Session: SessionConfig{
			Environment: "development",
		},
		OTP: OTPConfig{
			Window:          30 * time.Minute,
			RequestCooldown: 30 * time.Second,
			RedisPrefix:     "sf",
		},
		Password: PasswordConfig{
			Algorithm:      HashArgon2id,
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			BcryptCost:     12,
			UpgradeOnLogin: true,
		},
		Refresh: RefreshConfig{
			RevocationEnabled: false,
			RedisPrefix:       "sf",
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   1024,
			DropIfFull:   true,
			FailureGrace: 50 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first unusable setting. Every returned error wraps
// [ErrInvalidConfig].
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return invalidConfig("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return invalidConfig("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return invalidConfig("JWT RefreshTTL must exceed AccessTTL")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return invalidConfig("JWT AccessSecret must be at least 32 bytes")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		return invalidConfig("JWT RefreshSecret must be at least 32 bytes")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return invalidConfig("JWT AccessSecret and RefreshSecret must differ")
	}

	// OTP
	if c.OTP.Window <= 0 {
		return invalidConfig("OTP Window must be > 0")
	}
	if c.OTP.RequestCooldown < 0 {
		return invalidConfig("OTP RequestCooldown must be >= 0")
	}
	if c.OTP.MaxRequestsPerIP < 0 {
		return invalidConfig("OTP MaxRequestsPerIP must be >= 0")
	}

	// Password
	switch c.Password.Algorithm {
	case HashArgon2id:
		if c.Password.Memory < 8*1024 {
			return invalidConfig("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return invalidConfig("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return invalidConfig("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return invalidConfig("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return invalidConfig("Password KeyLength must be >= 16")
		}
	case HashBcrypt:
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return invalidConfig("Password BcryptCost must be between 4 and 31")
		}
	default:
		return invalidConfig("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.FailureGrace < 0 {
		return invalidConfig("Audit FailureGrace must be >= 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalidConfig("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
