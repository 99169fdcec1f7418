package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":9091", c.HTTPAddr)
	assert.Equal(t, "/api/v1", c.APIPrefix)
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 15, c.JWTAccessTTLMinutes)
	assert.Equal(t, 7, c.JWTRefreshTTLDays)
	assert.Equal(t, 30, c.OTPWindowMinutes)
	assert.Equal(t, MailDriverLog, c.MailDriver)
	assert.True(t, c.MetricsEnabled)
	assert.Empty(t, c.JWTAccessSecret)
	require.NoError(t, c.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	yamlPath := writeFile(t, "storefront.yaml", strings.Join([]string{
		"http_addr: \":7000\"",
		"api_prefix: /yaml",
		"mail_from: yaml@shop.test",
		"cors_allowed_origins:",
		"  - https://admin.shop.test",
	}, "\n"))
	envPath := writeFile(t, ".env", "API_PREFIX=/dotenv\nSF_TEST_BRAND_ONLY=1\nBRAND=Dotted\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("SF_TEST_BRAND_ONLY")
		_ = os.Unsetenv("BRAND")
	})
	t.Setenv("API_PREFIX", "/env")

	cfg, err := Load([]string{"-config", yamlPath, "-env-file", envPath, "-addr", ":8000"})
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr, "flag beats yaml")
	assert.Equal(t, "/env", cfg.APIPrefix, "process env beats .env and yaml")
	assert.Equal(t, "Dotted", cfg.Brand, ".env fills unset variables")
	assert.Equal(t, "yaml@shop.test", cfg.MailFrom)
	assert.Equal(t, []string{"https://admin.shop.test"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	path := writeFile(t, "c.yaml", "app_env: production\nredis_addr: localhost:6379\nrefresh_revocation: true\n")
	t.Setenv("CONFIG", path)

	cfg, err := Load([]string{"-env-file", ""})
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.RefreshRevocation)
}

func TestLoadEnvLists(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test,,")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")

	cfg, err := Load([]string{"-env-file", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 5, cfg.JWTAccessTTLMinutes)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "bad int", env: map[string]string{"SMTP_PORT": "twenty"}},
		{name: "bad bool", env: map[string]string{"AUDIT_ENABLED": "maybe"}},
		{name: "smtp without host", env: map[string]string{"MAIL_DRIVER": "smtp"}},
		{name: "sendgrid without key", env: map[string]string{"MAIL_DRIVER": "sendgrid"}},
		{name: "unknown driver", env: map[string]string{"MAIL_DRIVER": "pigeon"}},
		{name: "half admin", env: map[string]string{"ADMIN_EMAIL": "root@shop.test"}},
		{name: "revocation without redis", env: map[string]string{"REFRESH_REVOCATION": "true"}},
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "missing yaml", args: []string{"-config", "/does/not/exist.yaml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			args := append([]string{"-env-file", ""}, tc.args...)
			_, err := Load(args)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestEngineConfig(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.JWTAccessSecret = strings.Repeat("ab", 32)
	c.JWTRefreshSecret = strings.Repeat("cd", 32)
	c.Environment = "production"
	c.OTPCooldownSeconds = 45

	out, err := c.Engine()
	require.NoError(t, err)

	assert.Len(t, out.JWT.AccessSecret, 32)
	assert.Equal(t, 15*time.Minute, out.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, out.JWT.RefreshTTL)
	assert.Equal(t, 30*time.Minute, out.OTP.Window)
	assert.Equal(t, 45*time.Second, out.OTP.RequestCooldown)
	assert.True(t, out.Session.Secure())
	require.NoError(t, out.Validate())

	c.JWTRefreshSecret = "not-hex"
	_, err = c.Engine()
	assert.ErrorContains(t, err, "JWT_REFRESH_SECRET")
}
