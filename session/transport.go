package session

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	AccessCookie  = "access"
	RefreshCookie = "refresh"
)

// TransportConfig controls cookie attributes.
type TransportConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Secure sets the Secure attribute. Enable it in production.
	Secure bool
	Domain string
}

// Transport writes and reads the access and refresh cookies. Cookies are
// HttpOnly, Path=/ and SameSite=Strict; Max-Age equals the token lifetime.
type Transport struct {
	cfg TransportConfig
}

// NewTransport returns a cookie transport.
func NewTransport(cfg TransportConfig) *Transport {
	return &Transport{cfg: cfg}
}

// Write sets both cookies on w.
func (t *Transport) Write(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, t.cookie(AccessCookie, access, t.cfg.AccessTTL))
	http.SetCookie(w, t.cookie(RefreshCookie, refresh, t.cfg.RefreshTTL))
}

// Clear overwrites both cookies with an empty value and Max-Age=0.
func (t *Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, t.cookie(AccessCookie, "", 0))
	http.SetCookie(w, t.cookie(RefreshCookie, "", 0))
}

// AccessToken returns the access cookie value, or "" when absent.
func (t *Transport) AccessToken(r *http.Request) string {
	return cookieValue(r, AccessCookie)
}

// RefreshToken returns the refresh cookie value, or "" when absent.
func (t *Transport) RefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookie)
}

func (t *Transport) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   t.cfg.Domain,
		HttpOnly: true,
		Secure:   t.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	// net/http emits Max-Age=0 only for negative MaxAge.
	if ttl <= 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl / time.Second)
	}
	return c
}

func cookieValue(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
