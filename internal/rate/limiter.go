package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript decrements a live window counter. A key that already expired
// is left absent rather than recreated without a TTL.
var releaseScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 and tonumber(redis.call("GET", KEYS[1])) > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// Config holds limiter tuning parameters.
type Config struct {
	Prefix string
	// OtpCooldown is the window length for OTP requests.
	OtpCooldown time.Duration
	// MaxOtpRequests is the number of OTP requests allowed per window.
	MaxOtpRequests int
	// MaxOtpRequestsPerIP bounds requests from one client IP per window.
	// Zero disables the IP throttle.
	MaxOtpRequestsPerIP int
}

// Limiter enforces OTP request budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "sf"
	}
	if cfg.MaxOtpRequests <= 0 {
		cfg.MaxOtpRequests = 1
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckOtpRequest counts one OTP request for (purpose, email) and, when
// configured, for the client IP. It returns ErrRateLimited once a budget is
// exceeded within the current window.
func (l *Limiter) CheckOtpRequest(ctx context.Context, purpose, email, ip string) error {
	if l == nil || l.config.OtpCooldown <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.otpKey(purpose, email), l.config.OtpCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxOtpRequests) {
		return ErrRateLimited
	}

	if l.config.MaxOtpRequestsPerIP > 0 && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.otpIPKey(purpose, ip), l.config.OtpCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxOtpRequestsPerIP) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetOtpRequest returns the budget spent by one CheckOtpRequest call for
// (purpose, email) and the client IP, e.g. after the code could not be sent.
func (l *Limiter) ResetOtpRequest(ctx context.Context, purpose, email, ip string) error {
	if l == nil || l.config.OtpCooldown <= 0 {
		return nil
	}
	if err := l.redis.Del(ctx, l.otpKey(purpose, email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if l.config.MaxOtpRequestsPerIP <= 0 || ip == "" {
		return nil
	}
	// The IP window is shared with other addresses, so only give back this
	// request instead of clearing it.
	if err := releaseScript.Run(ctx, l.redis, []string{l.otpIPKey(purpose, ip)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// incrementWithTTL counts one hit in key's fixed window. INCR and EXPIRE NX
// run in one MULTI so a counter can never outlive its window: either both
// apply or neither does.
func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

func (l *Limiter) otpKey(purpose, email string) string {
	return l.config.Prefix + ":otp:" + purpose + ":" + email
}

func (l *Limiter) otpIPKey(purpose, ip string) string {
	return l.config.Prefix + ":otpip:" + purpose + ":" + ip
}
