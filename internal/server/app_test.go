package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/storefront/internal/logging"
	"github.com/MrEthical07/storefront/internal/server/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JWTAccessSecret = strings.Repeat("11", 32)
	cfg.JWTRefreshSecret = strings.Repeat("22", 32)
	cfg.PasswordAlgorithm = "bcrypt"
	cfg.AdminEmail = "root@shop.test"
	cfg.AdminPassword = "Root1234!"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := newApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(app.close)
	return app
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAppSeedsAdminInMemory(t *testing.T) {
	app := newTestApp(t, testConfig())

	rec := post(t, app.Handler(), "/api/v1/auth/login", `{"email":"root@shop.test","password":"Root1234!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/all", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	list := httptest.NewRecorder()
	app.Handler().ServeHTTP(list, req)
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"role":"ADMIN"`)
}

func TestAppUsesRedisForOtps(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.RefreshRevocation = true
	app := newTestApp(t, cfg)

	rec := post(t, app.Handler(), "/api/v1/auth/register",
		`{"email":"alice@shop.test","password":"Abc12345!","confirmPassword":"Abc12345!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	keys := mr.Keys()
	var otpKeys int
	for _, k := range keys {
		if strings.Contains(k, ":otp:") && strings.HasSuffix(k, ":EMAIL_VERIFY") {
			otpKeys++
		}
	}
	assert.Equal(t, 1, otpKeys, "keys: %v", keys)

	rec = post(t, app.Handler(), "/api/v1/auth/send-email-verification-email", `{"email":"alice@shop.test"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = post(t, app.Handler(), "/api/v1/auth/send-email-verification-email", `{"email":"alice@shop.test"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "second request inside the cooldown")
}

func TestAppRejectsUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.RedisAddr = addr
	_, err := newApp(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis init error")
}

func TestAppRejectsBadSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAccessSecret = "zz"
	_, err := newApp(context.Background(), cfg, logging.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestAppMetricsFormats(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsOTel = true
	app := newTestApp(t, cfg)

	rec := post(t, app.Handler(), "/api/v1/auth/login", `{"email":"root@shop.test","password":"Root1234!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	prom := httptest.NewRecorder()
	app.Handler().ServeHTTP(prom, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, prom.Body.String(), `storefront_login_total{result="success"} 1`)

	otel := httptest.NewRecorder()
	app.Handler().ServeHTTP(otel, httptest.NewRequest(http.MethodGet, "/metrics?format=otel", nil))
	require.Equal(t, http.StatusOK, otel.Code)

	var points []otelPoint
	require.NoError(t, json.Unmarshal(otel.Body.Bytes(), &points))
	var found bool
	for _, p := range points {
		if p.Name == "storefront_login_total" && p.Attributes["result"] == "success" {
			found = true
			assert.Equal(t, int64(1), p.Value)
		}
	}
	assert.True(t, found, "points: %+v", points)
}
