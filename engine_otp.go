package storefront

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/MrEthical07/storefront/internal/rate"
)

func templateFor(purpose OtpPurpose) TemplateID {
	if purpose == OtpPasswordReset {
		return TemplatePasswordReset
	}
	return TemplateEmailVerify
}

// throttleOtp applies the per-email request cooldown. A Redis outage is
// logged and the request is let through.
func (e *Engine) throttleOtp(ctx context.Context, identity Identity, purpose OtpPurpose) error {
	if e.limiter == nil {
		return nil
	}
	err := e.limiter.CheckOtpRequest(ctx, purpose.String(), identity.Email, ClientIPFromContext(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(OtpMetrics(purpose).RateLimited)
		e.emitAudit(ctx, auditEventOtpRequest, false, identity.ID, identity.Email, err, func() map[string]string {
			return map[string]string{
				"purpose": purpose.String(),
			}
		})
		return BadRequest(MsgOtpCooldown)
	default:
		e.log.Warn(ctx, "otp cooldown check failed", "user_id", identity.ID, "error", err)
		return nil
	}
}

// issueOtp replaces any outstanding code for (identity, purpose) with a fresh
// one and mails it. A failed send fails the caller.
func (e *Engine) issueOtp(ctx context.Context, identity Identity, purpose OtpPurpose) error {
	code, err := e.codes.Generate()
	if err != nil {
		return Internal(err)
	}

	record := OtpRecord{
		UserID:    identity.ID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: e.now().Add(e.config.OTP.Window),
	}
	if err := e.otps.Upsert(ctx, record); err != nil {
		return Internal(err)
	}

	err = e.notifier.Send(ctx, Notification{
		Template: templateFor(purpose),
		To:       identity.Email,
		Params: map[string]string{
			ParamToEmail: identity.Email,
			ParamOtp:     code,
		},
	})
	if err != nil {
		e.metricInc(OtpMetrics(purpose).NotificationFailure)
		e.log.Error(ctx, "otp notification failed", "user_id", identity.ID, "purpose", purpose.String(), "error", err)
		if e.limiter != nil {
			_ = e.limiter.ResetOtpRequest(ctx, purpose.String(), identity.Email, ClientIPFromContext(ctx))
		}
		return Internal(err)
	}

	e.metricInc(OtpMetrics(purpose).Issued)
	e.emitAudit(ctx, auditEventOtpRequest, true, identity.ID, identity.Email, nil, func() map[string]string {
		return map[string]string{
			"purpose": purpose.String(),
		}
	})
	return nil
}

// checkOtp validates code against the stored record in a fixed order:
// missing, mismatch, expired. An expired record is deleted. A matching,
// unexpired record is left in place for the caller to consume.
func (e *Engine) checkOtp(ctx context.Context, userID int64, purpose OtpPurpose, code string) error {
	record, err := e.otps.Get(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return BadRequest(MsgOtpMissing)
		}
		return Internal(err)
	}

	given := strings.ToUpper(strings.TrimSpace(code))
	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(given)) != 1 {
		e.metricInc(OtpMetrics(purpose).Invalid)
		return BadRequest(MsgOtpInvalid)
	}

	if record.Expired(e.now()) {
		e.metricInc(OtpMetrics(purpose).Expired)
		if err := e.otps.Delete(ctx, userID, purpose); err != nil && !errors.Is(err, ErrRecordNotFound) {
			return Internal(err)
		}
		return BadRequest(MsgOtpExpired)
	}

	return nil
}

func (e *Engine) consumeOtp(ctx context.Context, userID int64, purpose OtpPurpose) error {
	if err := e.otps.Delete(ctx, userID, purpose); err != nil && !errors.Is(err, ErrRecordNotFound) {
		return Internal(err)
	}
	return nil
}
