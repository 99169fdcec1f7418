package storefront

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role is the closed set of account roles. Roles compare by value.
type Role uint8

const (
	// RoleUser is assigned to every self-registered account.
	RoleUser Role = iota + 1
	// RoleAdmin unlocks user listing and catalog mutation.
	RoleAdmin
)

// String returns the canonical role name ("USER" or "ADMIN").
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole maps a role name to a [Role]. Names are matched case-insensitively
// and may carry a "ROLE_" prefix.
func ParseRole(name string) (Role, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "ROLE_")
	switch n {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", name)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Identity is a stored account.
type Identity struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	PasswordHash  string `json:"-"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	EmailVerified bool   `json:"isEmailVerified"`
	Role          Role   `json:"role"`
}

// OtpPurpose separates verification codes from reset codes. A user holds at
// most one live code per purpose.
type OtpPurpose uint8

const (
	// OtpEmailVerify codes confirm ownership of the registered email.
	OtpEmailVerify OtpPurpose = iota + 1
	// OtpPasswordReset codes authorize a password replacement.
	OtpPasswordReset
)

func (p OtpPurpose) String() string {
	switch p {
	case OtpEmailVerify:
		return "EMAIL_VERIFY"
	case OtpPasswordReset:
		return "PASSWORD_RESET"
	default:
		return "UNKNOWN"
	}
}

// ParseOtpPurpose is the inverse of [OtpPurpose.String].
func ParseOtpPurpose(s string) (OtpPurpose, error) {
	switch s {
	case "EMAIL_VERIFY":
		return OtpEmailVerify, nil
	case "PASSWORD_RESET":
		return OtpPasswordReset, nil
	default:
		return 0, fmt.Errorf("unknown otp purpose %q", s)
	}
}

// OtpRecord is an outstanding one-time code.
type OtpRecord struct {
	ID        int64
	UserID    int64
	Purpose   OtpPurpose
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer usable at now. A record is
// expired from ExpiresAt onward.
func (r OtpRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID       int64
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
}

// PrincipalOf builds the principal for a stored identity.
func PrincipalOf(id Identity) Principal {
	return Principal{
		UserID:       id.ID,
		Email:        id.Email,
		PasswordHash: id.PasswordHash,
		Role:         id.Role,
		Verified:     id.EmailVerified,
	}
}

// Identifier returns the login name (the email).
func (p Principal) Identifier() string { return p.Email }

// CredentialDigest returns the stored password hash.
func (p Principal) CredentialDigest() string { return p.PasswordHash }

// Authorities returns the granted authorities in "ROLE_<NAME>" form.
func (p Principal) Authorities() []string {
	if !p.Role.Valid() {
		return nil
	}
	return []string{"ROLE_" + p.Role.String()}
}

// Enabled reports whether the principal refers to a stored account.
func (p Principal) Enabled() bool { return p.UserID > 0 && p.Role.Valid() }

// IsAdmin reports whether the principal holds [RoleAdmin].
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owns reports whether the principal is the account with the given id.
func (p Principal) Owns(userID int64) bool { return p.UserID > 0 && p.UserID == userID }

func (p Principal) String() string {
	return p.Email + "#" + strconv.FormatInt(p.UserID, 10)
}

// UserStore persists identities. Lookups that match nothing return
// [ErrRecordNotFound]; Create returns [ErrDuplicateEmail] for a taken email.
// Emails are passed in normalized form.
type UserStore interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id int64) (Identity, error)
	GetByEmail(ctx context.Context, email string) (Identity, error)
	Update(ctx context.Context, identity Identity) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Identity, error)
}

// OtpStore persists one-time codes keyed by (UserID, Purpose). Upsert
// replaces any prior record for the pair in a single atomic step.
type OtpStore interface {
	Upsert(ctx context.Context, record OtpRecord) error
	Get(ctx context.Context, userID int64, purpose OtpPurpose) (OtpRecord, error)
	Delete(ctx context.Context, userID int64, purpose OtpPurpose) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// TemplateID names a notification template.
type TemplateID string

const (
	// TemplateEmailVerify carries an email verification code.
	TemplateEmailVerify TemplateID = "emailVerifyTemplate"
	// TemplatePasswordReset carries a password reset code.
	TemplatePasswordReset TemplateID = "passwordResetTemplate"
)

// Notification parameter names understood by the templates.
const (
	ParamToEmail = "toEmail"
	ParamOtp     = "otp"
)

// Notification is one outbound email.
type Notification struct {
	Template TemplateID
	To       string
	Params   map[string]string
}

// Notifier delivers notifications. A returned error fails the operation that
// triggered the send.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// RefreshRevoker tracks rotated refresh tokens. See [Config.Refresh]. Revoke
// must fail with an error wrapping session.ErrAlreadyRevoked when tokenID was
// already recorded.
type RefreshRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest is the input of [Engine.Login].
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest is the input of [Engine.ResetPassword].
type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required"`
	Otp             string `json:"otp" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// UpdateAccountRequest is the input of [Engine.UpdateAccount].
type UpdateAccountRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
}

// ChangePasswordRequest is the input of [Engine.ChangePassword].
type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}

// NormalizeEmail lowercases and trims an email address. Every store lookup
// goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
