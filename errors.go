package storefront

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the HTTP boundary. Each kind maps to exactly
// one status code via [StatusOf].
type Kind uint8

const (
	// KindInternal is an unexpected failure. Its message is never shown to callers.
	KindInternal Kind = iota
	// KindBadRequest is malformed input or a failed business precondition.
	KindBadRequest
	// KindUnauthorized is a bad credential pair.
	KindUnauthorized
	// KindForbidden is an unverified account, an invalid refresh token or a
	// caller acting on somebody else's resource.
	KindForbidden
	// KindNotFound is a missing resource addressed by id.
	KindNotFound
	// KindConflict is a uniqueness violation such as a duplicate email.
	KindConflict
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// StatusOf maps a kind to its HTTP status code.
func StatusOf(k Kind) int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error returned by [Engine] operations. Message is safe
// to show to callers; Err carries the wrapped cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SafeMessage returns the caller-visible message. Internal errors never expose
// their cause.
func (e *Error) SafeMessage() string {
	if e.Kind == KindInternal {
		return internalErrorMessage
	}
	return e.Message
}

const internalErrorMessage = "Internal server error"

// KindOf returns the kind of the first [*Error] in err's chain, or
// [KindInternal] when there is none.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.SafeMessage()
	}
	return internalErrorMessage
}

// BadRequest builds a [KindBadRequest] error.
func BadRequest(msg string) *Error { return &Error{Kind: KindBadRequest, Message: msg} }

// Unauthorized builds a [KindUnauthorized] error.
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// Forbidden builds a [KindForbidden] error.
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

// NotFound builds a [KindNotFound] error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Conflict builds a [KindConflict] error.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// Internal wraps an unexpected failure. Domain errors already in err's chain
// pass through unchanged.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return err
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

var (
	// ErrRecordNotFound is returned by stores when a lookup matches nothing.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned by user stores when the email is taken.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUserStoreRequired is returned by Build without a user store.
	ErrUserStoreRequired = errors.New("user store is required")
	// ErrOtpStoreRequired is returned by Build without an OTP store.
	ErrOtpStoreRequired = errors.New("otp store is required")
	// ErrNotifierRequired is returned by Build without a notifier.
	ErrNotifierRequired = errors.New("notifier is required")
)

// Caller-facing messages shared by the engine and the HTTP layer.
const (
	MsgEmailTaken           = "Email is already taken"
	MsgPasswordsMismatch    = "Passwords do not match"
	MsgPasswordWeak         = "Password is not strong enough"
	MsgInvalidCredentials   = "Invalid credentials"
	MsgEmailNotVerified     = "Please verify your email to login"
	MsgInvalidRefreshToken  = "Invalid refresh token"
	MsgInvalidEmail         = "Invalid email"
	MsgEmailAlreadyVerified = "Email is already verified"
	MsgVerifyEmailFirst     = "Please verify your email first"
	MsgOtpMissing           = "No OTP found, Please request a new OTP"
	MsgOtpInvalid           = "Invalid OTP"
	MsgOtpExpired           = "OTP has expired"
	MsgOtpCooldown          = "Please wait before requesting a new OTP"
	MsgAccessDenied         = "Access denied"
	MsgTokenRejected        = "Access Denied"
	MsgUserNotFound         = "User not found"
	MsgIncorrectPassword    = "Incorrect password"
	MsgPasswordReuse        = "New password cannot be the same as the old password"
	MsgNewPasswordMismatch  = "New password and confirm password do not match"
)
