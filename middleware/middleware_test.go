package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/store/memory"
)

type discardNotifier struct{}

func (discardNotifier) Send(context.Context, storefront.Notification) error { return nil }

func newTestEngine(t *testing.T) (*storefront.Engine, *memory.UserStore) {
	t.Helper()
	cfg := storefront.DefaultConfig()
	cfg.JWT.AccessSecret = bytes.Repeat([]byte{0x11}, 32)
	cfg.JWT.RefreshSecret = bytes.Repeat([]byte{0x22}, 32)
	cfg.Password.Algorithm = storefront.HashBcrypt
	cfg.Password.BcryptCost = 4

	users := memory.NewUserStore()
	engine, err := storefront.New().
		WithConfig(cfg).
		WithUserStore(users).
		WithOtpStore(memory.NewOtpStore()).
		WithNotifier(discardNotifier{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, users
}

func loginCookies(t *testing.T, engine *storefront.Engine, email, pw string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := engine.Login(context.Background(), rec, storefront.LoginRequest{Email: email, Password: pw}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return rec.Result().Cookies()
}

func principalEcho(w http.ResponseWriter, r *http.Request) {
	p, ok := storefront.PrincipalFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(p.Email + " " + p.Role.String()))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestAuthFilterPassesAnonymousWithoutCookie(t *testing.T) {
	engine, _ := newTestEngine(t)
	h := AuthFilter(engine)(http.HandlerFunc(principalEcho))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthFilterAttachesPrincipal(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, _, err := engine.EnsureAdmin(context.Background(), "root@example.com", "Root1234!"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	cookies := loginCookies(t, engine, "root@example.com", "Root1234!")

	h := AuthFilter(engine)(http.HandlerFunc(principalEcho))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Body.String() != "root@example.com ADMIN" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("filter must not write cookies")
	}
}

func TestAuthFilterRejectsBadToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	called := false
	h := AuthFilter(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access", Value: "not-a-jwt"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Fatal("handler must not run for a rejected token")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Access Denied" || body["message"] != nil || body["data"] != nil {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["message"]; !ok {
		t.Fatal("message key must be present")
	}
}

func TestAuthFilterRejectsDeletedSubject(t *testing.T) {
	engine, users := newTestEngine(t)
	admin, _, err := engine.EnsureAdmin(context.Background(), "root@example.com", "Root1234!")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	cookies := loginCookies(t, engine, "root@example.com", "Root1234!")
	if err := users.Delete(context.Background(), admin.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	AuthFilter(engine)(http.HandlerFunc(principalEcho)).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	h := RequireAuthenticated(http.HandlerFunc(principalEcho))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != MsgUnauthorized {
		t.Fatalf("unexpected body %v", body)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(storefront.WithPrincipal(req.Context(), storefront.Principal{UserID: 1, Email: "u@example.com", Role: storefront.RoleUser}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(storefront.RoleAdmin)(http.HandlerFunc(principalEcho))

	tests := []struct {
		name      string
		principal *storefront.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", &storefront.Principal{UserID: 2, Role: storefront.RoleUser}, http.StatusForbidden},
		{"admin", &storefront.Principal{UserID: 1, Role: storefront.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			if tc.principal != nil {
				req = req.WithContext(storefront.WithPrincipal(req.Context(), *tc.principal))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestClientIPStripsPort(t *testing.T) {
	var seen string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = storefront.ClientIPFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5123"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "203.0.113.9" {
		t.Fatalf("client ip = %q, want 203.0.113.9", seen)
	}
}
