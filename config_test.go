package storefront

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test baseline",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "missing secrets",
			mutate: func(c *Config) {
				c.JWT.AccessSecret = nil
			},
			wantValid: false,
		},
		{
			name: "short refresh secret",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "shared secret",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = bytes.Clone(c.JWT.AccessSecret)
			},
			wantValid: false,
		},
		{
			name: "refresh not longer than access",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = c.JWT.AccessTTL
			},
			wantValid: false,
		},
		{
			name: "zero otp window",
			mutate: func(c *Config) {
				c.OTP.Window = 0
			},
			wantValid: false,
		},
		{
			name: "cooldown disabled",
			mutate: func(c *Config) {
				c.OTP.RequestCooldown = 0
			},
			wantValid: true,
		},
		{
			name: "negative cooldown",
			mutate: func(c *Config) {
				c.OTP.RequestCooldown = -time.Second
			},
			wantValid: false,
		},
		{
			name: "argon2 defaults",
			mutate: func(c *Config) {
				c.Password = DefaultConfig().Password
			},
			wantValid: true,
		},
		{
			name: "argon2 low memory",
			mutate: func(c *Config) {
				c.Password = DefaultConfig().Password
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "bcrypt cost out of range",
			mutate: func(c *Config) {
				c.Password.BcryptCost = 40
			},
			wantValid: false,
		},
		{
			name: "unknown algorithm",
			mutate: func(c *Config) {
				c.Password.Algorithm = "md5"
			},
			wantValid: false,
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "negative audit failure grace",
			mutate: func(c *Config) {
				c.Audit.FailureGrace = -time.Millisecond
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected default config without secrets to be rejected, got %v", err)
	}
	if cfg.OTP.Window != 30*time.Minute {
		t.Fatalf("OTP window = %v, want 30m", cfg.OTP.Window)
	}
	if cfg.Session.Secure() {
		t.Fatal("development must not force Secure cookies")
	}
}

func TestSessionSecureInProduction(t *testing.T) {
	for _, env := range []string{"production", " PRODUCTION "} {
		if !(SessionConfig{Environment: env}).Secure() {
			t.Fatalf("expected %q to be secure", env)
		}
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	cases := []struct {
		name string
		b    *Builder
		want error
	}{
		{"users", New().WithConfig(testConfig()), ErrUserStoreRequired},
		{"otps", New().WithConfig(testConfig()).WithUserStore(newFakeUserStore()), ErrOtpStoreRequired},
		{"notifier", New().WithConfig(testConfig()).WithUserStore(newFakeUserStore()).WithOtpStore(newFakeOtpStore()), ErrNotifierRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.b.Build(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().
		WithConfig(testConfig()).
		WithUserStore(newFakeUserStore()).
		WithOtpStore(newFakeOtpStore()).
		WithNotifier(&recordingNotifier{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine
	if err := e.SendEmailVerificationOtp(context.Background(), testEmail); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
	if e.AuditDropped() != 0 {
		t.Fatal("nil engine must report zero drops")
	}
}
