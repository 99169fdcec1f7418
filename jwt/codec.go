package jwt

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minKeyBytes = 32

var (
	// ErrInvalidToken is the single classification for every verification
	// failure: malformed, wrong key, wrong algorithm or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidConfig is returned by NewCodec for unusable settings.
	ErrInvalidConfig = errors.New("invalid token codec config")
)

// Config configures a Codec.
type Config struct {
	AccessKey  []byte
	RefreshKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Subject is the identity a token is issued for.
type Subject struct {
	Email  string
	UserID int64
	Role   string
}

// AccessClaims is the access token payload. Subject carries the email.
type AccessClaims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the refresh token payload.
type RefreshClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time

	accessParser  *jwt.Parser
	refreshParser *jwt.Parser
}

// NewCodec validates cfg and returns a ready codec. Keys must be at least 32
// bytes and must differ from each other.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.Join(ErrInvalidConfig, errors.New("token TTLs must be > 0"))
	}
	if len(cfg.AccessKey) < minKeyBytes || len(cfg.RefreshKey) < minKeyBytes {
		return nil, errors.Join(ErrInvalidConfig, errors.New("signing keys must be at least 32 bytes"))
	}
	if bytes.Equal(cfg.AccessKey, cfg.RefreshKey) {
		return nil, errors.Join(ErrInvalidConfig, errors.New("access and refresh keys must differ"))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Codec{
		accessKey:  append([]byte(nil), cfg.AccessKey...),
		refreshKey: append([]byte(nil), cfg.RefreshKey...),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     strings.TrimSpace(cfg.Issuer),
		now:        cfg.Now,
	}
	c.accessParser = c.newParser()
	c.refreshParser = c.newParser()
	return c, nil
}

// DecodeHexKey decodes a hex-encoded signing secret.
func DecodeHexKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return key, nil
}

func (c *Codec) newParser() *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	return jwt.NewParser(opts...)
}

// AccessTTL returns the access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// issuedAt is the clock reading at NumericDate precision, so exp is always
// exactly iat plus the TTL the session cookie is given.
func (c *Codec) issuedAt() time.Time {
	return c.now().Truncate(time.Second)
}

// IssueAccess signs an access token for s with the access key.
func (c *Codec) IssueAccess(s Subject) (string, error) {
	now := c.issuedAt()
	claims := AccessClaims{
		UserID: s.UserID,
		Role:   s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Email,
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessKey)
}

// IssueRefresh signs a refresh token for s with the refresh key. Only the
// user id is embedded.
func (c *Codec) IssueRefresh(s Subject) (string, error) {
	now := c.issuedAt()
	claims := RefreshClaims{
		UserID: s.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshKey)
}

// ValidateAccess verifies signature and expiry against the access key.
func (c *Codec) ValidateAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(c.accessParser, token, claims, c.accessKey); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh verifies signature and expiry against the refresh key.
func (c *Codec) ValidateRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(c.refreshParser, token, claims, c.refreshKey); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SubjectOf returns the email carried by a valid access token.
func (c *Codec) SubjectOf(token string) (string, error) {
	claims, err := c.ValidateAccess(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// UserIDOf returns the user id carried by a valid refresh token.
func (c *Codec) UserIDOf(token string) (int64, error) {
	claims, err := c.ValidateRefresh(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (c *Codec) parse(p *jwt.Parser, token string, claims jwt.Claims, key []byte) error {
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := p.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
