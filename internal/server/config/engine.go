package config

import (
	"fmt"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/jwt"
)

// Engine converts the server settings into an engine configuration. The
// result is validated by the engine builder.
func (c *Config) Engine() (storefront.Config, error) {
	access, err := jwt.DecodeHexKey(c.JWTAccessSecret)
	if err != nil {
		return storefront.Config{}, fmt.Errorf("JWT_ACCESS_SECRET: %w", err)
	}
	refresh, err := jwt.DecodeHexKey(c.JWTRefreshSecret)
	if err != nil {
		return storefront.Config{}, fmt.Errorf("JWT_REFRESH_SECRET: %w", err)
	}

	out := storefront.DefaultConfig()
	out.JWT.AccessSecret = access
	out.JWT.RefreshSecret = refresh
	out.JWT.AccessTTL = time.Duration(c.JWTAccessTTLMinutes) * time.Minute
	out.JWT.RefreshTTL = time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
	out.Session.Environment = c.Environment
	out.Session.CookieDomain = c.CookieDomain

	out.OTP.Window = time.Duration(c.OTPWindowMinutes) * time.Minute
	out.OTP.RequestCooldown = time.Duration(c.OTPCooldownSeconds) * time.Second
	out.OTP.RedisPrefix = c.RedisPrefix
	out.Password.Algorithm = c.PasswordAlgorithm

	out.Refresh.RevocationEnabled = c.RefreshRevocation
	out.Refresh.RedisPrefix = c.RedisPrefix
	out.Audit.Enabled = c.AuditEnabled
	out.Metrics.Enabled = c.MetricsEnabled
	return out, nil
}
