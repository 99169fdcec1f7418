package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps every Redis failure in this package.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrAlreadyRevoked is returned by Revoke when the id was recorded by an
	// earlier call. Concurrent rotations of one token have a single winner.
	ErrAlreadyRevoked = errors.New("token already revoked")
)

// RevocationStore remembers refresh token ids that were rotated away. Entries
// expire with the token they describe.
type RevocationStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRevocationStore returns a store using keys "<prefix>:rv:<jti>".
func NewRevocationStore(client redis.UniversalClient, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = "sf"
	}
	return &RevocationStore{redis: client, prefix: prefix}
}

// Revoke records tokenID for ttl. A non-positive ttl is a no-op; the token
// has already expired.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	ok, err := s.redis.SetNX(ctx, s.key(tokenID), 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

func (s *RevocationStore) key(tokenID string) string {
	return s.prefix + ":rv:" + tokenID
}
