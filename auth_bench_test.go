package storefront

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/storefront/session"
)

func BenchmarkAuthenticateAccess(b *testing.B) {
	env := newBenchmarkEnv(b)

	rec, _, err := env.login(b, testEmail, testPassword)
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}
	access := cookieByName(b, rec, session.AccessCookie).Value

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.AuthenticateAccess(context.Background(), access); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	env := newBenchmarkEnv(b)

	rec, _, err := env.login(b, testEmail, testPassword)
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}
	refresh := cookieByName(b, rec, session.RefreshCookie).Value

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		if _, err := env.engine.RefreshTokens(context.Background(), w, refresh); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
		refresh = cookieByName(b, w, session.RefreshCookie).Value
	}
}

func BenchmarkLogin(b *testing.B) {
	env := newBenchmarkEnv(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := env.login(b, testEmail, testPassword); err != nil {
			b.Fatalf("login failed: %v", err)
		}
	}
}

func newBenchmarkEnv(tb testing.TB) *testEnv {
	tb.Helper()

	env := newTestEnv(tb, func(b *Builder) {
		b.WithMetricsEnabled(false)
	})
	env.registerVerified(tb, testEmail)
	return env
}
