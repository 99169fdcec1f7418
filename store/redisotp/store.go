// Package redisotp stores one-time codes in Redis. Each (user, purpose) pair
// owns a single key, so issuing a code is one SET that replaces any previous
// code.
//
// Records outlive their ExpiresAt by a retention period. Reading an expired
// record therefore reports it as expired rather than missing, and the caller
// deletes it.
package redisotp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/redis/go-redis/v9"
)

const (
	recordVersionV1 = 1

	// DefaultRetention is how long a record is kept after it expires.
	DefaultRetention = 24 * time.Hour
)

// ErrRedisUnavailable wraps every Redis failure in this package.
var ErrRedisUnavailable = errors.New("otp redis unavailable")

var purposes = []storefront.OtpPurpose{storefront.OtpEmailVerify, storefront.OtpPasswordReset}

// Store implements [storefront.OtpStore].
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// Option configures a [Store].
type Option func(*Store)

// WithRetention overrides [DefaultRetention].
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock sets the time source used to compute key TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store using keys "<prefix>:otp:<userID>:<purpose>".
func New(client redis.UniversalClient, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = "sf"
	}
	s := &Store{
		redis:     client,
		prefix:    prefix,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(userID int64, purpose storefront.OtpPurpose) string {
	return s.prefix + ":otp:" + strconv.FormatInt(userID, 10) + ":" + purpose.String()
}

func (s *Store) seqKey() string {
	return s.prefix + ":otp:seq"
}

func (s *Store) Upsert(ctx context.Context, record storefront.OtpRecord) error {
	id, err := s.redis.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	record.ID = id

	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}

	ttl := record.ExpiresAt.Sub(s.now()) + s.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.redis.Set(ctx, s.key(record.UserID, record.Purpose), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID int64, purpose storefront.OtpPurpose) (storefront.OtpRecord, error) {
	data, err := s.redis.Get(ctx, s.key(userID, purpose)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storefront.OtpRecord{}, storefront.ErrRecordNotFound
		}
		return storefront.OtpRecord{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		// unreadable records are treated as absent and dropped
		_ = s.redis.Del(ctx, s.key(userID, purpose)).Err()
		return storefront.OtpRecord{}, storefront.ErrRecordNotFound
	}
	record.UserID = userID
	record.Purpose = purpose
	return record, nil
}

func (s *Store) Delete(ctx context.Context, userID int64, purpose storefront.OtpPurpose) error {
	if err := s.redis.Del(ctx, s.key(userID, purpose)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) DeleteAllForUser(ctx context.Context, userID int64) error {
	keys := make([]string, 0, len(purposes))
	for _, p := range purposes {
		keys = append(keys, s.key(userID, p))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Record layout: version(1) id(8) expiresAtUnixMilli(8) codeLen(1) code.
func encodeRecord(record storefront.OtpRecord) ([]byte, error) {
	if len(record.Code) > 255 {
		return nil, errors.New("otp code too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(len(record.Code)))
	buf.WriteString(record.Code)
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (storefront.OtpRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return storefront.OtpRecord{}, err
	}
	if version != recordVersionV1 {
		return storefront.OtpRecord{}, errors.New("invalid otp record version")
	}

	var (
		record    storefront.OtpRecord
		expiresAt int64
	)
	if err := binary.Read(reader, binary.BigEndian, &record.ID); err != nil {
		return storefront.OtpRecord{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return storefront.OtpRecord{}, err
	}
	record.ExpiresAt = time.UnixMilli(expiresAt).UTC()

	codeLen, err := reader.ReadByte()
	if err != nil {
		return storefront.OtpRecord{}, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, code); err != nil {
		return storefront.OtpRecord{}, err
	}
	record.Code = string(code)
	return record, nil
}
