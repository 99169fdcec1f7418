package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/storefront/internal/rate"
	"github.com/google/uuid"
)

const (
	auditEventRegisterSuccess         = "register_success"
	auditEventRegisterFailure         = "register_failure"
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventRefreshSuccess          = "refresh_success"
	auditEventRefreshInvalid          = "refresh_invalid"
	auditEventRefreshReuseDetected    = "refresh_reuse_detected"
	auditEventLogout                  = "logout"
	auditEventOtpRequest              = "otp_request"
	auditEventEmailVerificationVerify = "email_verification_confirm"
	auditEventPasswordResetConfirm    = "password_reset_confirm"
	auditEventPasswordChange          = "password_change"
	auditEventAccountUpdate           = "account_update"
	auditEventAccountDelete           = "account_delete"
	auditEventAccessDenied            = "access_denied"
	auditEventAdminSeeded             = "admin_seeded"
)

// AuditErrorCode is the stable, low-cardinality error label on audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnverified         AuditErrorCode = "account_unverified"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrBadRequest         AuditErrorCode = "bad_request"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInternal           AuditErrorCode = "internal_error"
)

var errRefreshReuse = errors.New("refresh token reuse")

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, errRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, rate.ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	}

	switch MessageOf(err) {
	case MsgInvalidCredentials:
		return auditErrInvalidCredentials
	case MsgEmailNotVerified, MsgVerifyEmailFirst:
		return auditErrUnverified
	case MsgInvalidRefreshToken, MsgTokenRejected:
		return auditErrInvalidToken
	case MsgOtpCooldown:
		return auditErrRateLimited
	case MsgEmailTaken:
		return auditErrDuplicate
	}

	switch KindOf(err) {
	case KindBadRequest:
		return auditErrBadRequest
	case KindUnauthorized:
		return auditErrInvalidCredentials
	case KindForbidden:
		return auditErrForbidden
	case KindNotFound:
		return auditErrNotFound
	case KindConflict:
		return auditErrDuplicate
	default:
		return auditErrInternal
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}
