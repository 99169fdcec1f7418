package storefront

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/storefront/internal/audit"
	"github.com/MrEthical07/storefront/internal/logging"
	"github.com/MrEthical07/storefront/internal/rate"
	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/otp"
	"github.com/MrEthical07/storefront/password"
	"github.com/MrEthical07/storefront/session"
	"github.com/redis/go-redis/v9"
)

// CodeGenerator produces one-time codes. [otp.Generator] is the default.
type CodeGenerator interface {
	Generate() (string, error)
}

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    UserStore
	otps     OtpStore
	notifier Notifier

	hasher    PasswordHasher
	codes     CodeGenerator
	revoker   RefreshRevoker
	logger    logging.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis enables the OTP request cooldown and, when configured, refresh
// token revocation.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

func (b *Builder) WithOtpStore(s OtpStore) *Builder {
	b.otps = s
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithHasher overrides the hasher selected by [PasswordConfig.Algorithm].
func (b *Builder) WithHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithCodeGenerator(g CodeGenerator) *Builder {
	b.codes = g
	return b
}

// WithRevoker supplies a custom refresh revocation backend. It takes
// precedence over the Redis-backed default.
func (b *Builder) WithRevoker(r RefreshRevoker) *Builder {
	b.revoker = r
	return b
}

func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides time.Now for token issuance and OTP expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, ErrUserStoreRequired
	}
	if b.otps == nil {
		return nil, ErrOtpStoreRequired
	}
	if b.notifier == nil {
		return nil, ErrNotifierRequired
	}
	if cfg.Refresh.RevocationEnabled && b.revoker == nil && b.redis == nil {
		return nil, invalidConfig("Refresh RevocationEnabled requires a redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- TOKENS --------
	codec, err := jwt.NewCodec(jwt.Config{
		AccessKey:  cfg.JWT.AccessSecret,
		RefreshKey: cfg.JWT.RefreshSecret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Now:        now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	transport := session.NewTransport(session.TransportConfig{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Secure:     cfg.Session.Secure(),
		Domain:     cfg.Session.CookieDomain,
	})

	// -------- PASSWORDS --------
	hasher := b.hasher
	if hasher == nil {
		hasher, err = newHasher(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	codes := b.codes
	if codes == nil {
		codes = otp.NewGenerator()
	}

	// -------- REDIS BACKED --------
	var limiter *rate.Limiter
	if b.redis != nil && cfg.OTP.RequestCooldown > 0 {
		limiter = rate.New(b.redis, rate.Config{
			Prefix:              cfg.OTP.RedisPrefix,
			OtpCooldown:         cfg.OTP.RequestCooldown,
			MaxOtpRequests:      1,
			MaxOtpRequestsPerIP: cfg.OTP.MaxRequestsPerIP,
		})
	}

	var revoker RefreshRevoker
	if cfg.Refresh.RevocationEnabled {
		revoker = b.revoker
		if revoker == nil {
			revoker = session.NewRevocationStore(b.redis, cfg.Refresh.RedisPrefix)
		}
	}

	logger := b.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	b.built = true

	return &Engine{
		config:    cfg,
		users:     b.users,
		otps:      b.otps,
		notifier:  b.notifier,
		hasher:    hasher,
		codec:     codec,
		transport: transport,
		codes:     codes,
		limiter:   limiter,
		revoker:   revoker,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:      cfg.Audit.Enabled,
			BufferSize:   cfg.Audit.BufferSize,
			DropIfFull:   cfg.Audit.DropIfFull,
			FailureGrace: cfg.Audit.FailureGrace,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		log:     logger,
		now:     now,
	}, nil
}

func newHasher(cfg PasswordConfig) (PasswordHasher, error) {
	switch cfg.Algorithm {
	case HashBcrypt:
		return password.NewBcrypt(cfg.BcryptCost)
	default:
		return password.NewArgon2(password.Config{
			Memory:      cfg.Memory,
			Time:        cfg.Time,
			Parallelism: cfg.Parallelism,
			SaltLength:  cfg.SaltLength,
			KeyLength:   cfg.KeyLength,
		})
	}
}
