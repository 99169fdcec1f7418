package redisotp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/storefront"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var epoch = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test", WithClock(func() time.Time { return epoch }), WithRetention(time.Hour)), mr
}

func TestUpsertReplacesPreviousCode(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"AB1234", "CD5678"} {
		err := s.Upsert(ctx, storefront.OtpRecord{UserID: 7, Purpose: storefront.OtpEmailVerify, Code: code, ExpiresAt: epoch.Add(30 * time.Minute)})
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	r, err := s.Get(ctx, 7, storefront.OtpEmailVerify)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Code != "CD5678" || r.ID != 2 || !r.ExpiresAt.Equal(epoch.Add(30*time.Minute)) {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.UserID != 7 || r.Purpose != storefront.OtpEmailVerify {
		t.Fatalf("record key fields not restored: %+v", r)
	}

	ttl := mr.TTL("test:otp:7:EMAIL_VERIFY")
	if ttl != 90*time.Minute {
		t.Fatalf("ttl = %v, want 1h30m", ttl)
	}
}

func TestExpiredRecordIsStillReadable(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	_ = s.Upsert(ctx, storefront.OtpRecord{UserID: 1, Purpose: storefront.OtpPasswordReset, Code: "ZZ0000", ExpiresAt: epoch.Add(30 * time.Minute)})

	mr.FastForward(31 * time.Minute)
	r, err := s.Get(ctx, 1, storefront.OtpPasswordReset)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !r.Expired(epoch.Add(31 * time.Minute)) {
		t.Fatal("expected record to report expired")
	}

	mr.FastForward(time.Hour)
	if _, err := s.Get(ctx, 1, storefront.OtpPasswordReset); !errors.Is(err, storefront.ErrRecordNotFound) {
		t.Fatalf("expected retention to lapse, got %v", err)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		for _, p := range purposes {
			_ = s.Upsert(ctx, storefront.OtpRecord{UserID: id, Purpose: p, Code: "AB1234", ExpiresAt: epoch.Add(time.Minute)})
		}
	}

	if err := s.DeleteAllForUser(ctx, 1); err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if mr.Exists("test:otp:1:EMAIL_VERIFY") || mr.Exists("test:otp:1:PASSWORD_RESET") {
		t.Fatal("user 1 codes must be gone")
	}
	if !mr.Exists("test:otp:2:EMAIL_VERIFY") {
		t.Fatal("user 2 codes must remain")
	}
	if err := s.Delete(ctx, 2, storefront.OtpEmailVerify); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, 2, storefront.OtpEmailVerify); !errors.Is(err, storefront.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCorruptRecordIsDropped(t *testing.T) {
	s, mr := newTestStore(t)
	_ = mr.Set("test:otp:3:EMAIL_VERIFY", "\x09garbage")

	if _, err := s.Get(context.Background(), 3, storefront.OtpEmailVerify); !errors.Is(err, storefront.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if mr.Exists("test:otp:3:EMAIL_VERIFY") {
		t.Fatal("corrupt record must be deleted")
	}
}

func TestRedisDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	err := s.Upsert(context.Background(), storefront.OtpRecord{UserID: 1, Purpose: storefront.OtpEmailVerify, Code: "AB1234", ExpiresAt: epoch})
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := s.Get(context.Background(), 1, storefront.OtpEmailVerify); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestRecordCodec(t *testing.T) {
	in := storefront.OtpRecord{ID: 42, Code: "7Q1Z23", ExpiresAt: epoch}
	data, err := encodeRecord(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || out.Code != in.Code || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if _, err := decodeRecord(data[:len(data)-1]); err == nil {
		t.Fatal("expected truncated record to fail")
	}
}
