package storefront

import (
	"context"
	"errors"

	"github.com/MrEthical07/storefront/password"
)

// SendPasswordResetOtp mails a reset code to a verified account.
func (e *Engine) SendPasswordResetOtp(ctx context.Context, email string) error {
	if err := e.ready(); err != nil {
		return err
	}
	email = NormalizeEmail(email)

	identity, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return BadRequest(MsgInvalidEmail)
		}
		return Internal(err)
	}
	if !identity.EmailVerified {
		return BadRequest(MsgVerifyEmailFirst)
	}

	e.metricInc(MetricPasswordResetRequest)
	if err := e.throttleOtp(ctx, identity, OtpPasswordReset); err != nil {
		return err
	}
	return e.issueOtp(ctx, identity, OtpPasswordReset)
}

// ResetPassword replaces the password after checking the reset code. The code
// is checked before the new password, and consumed only once the new
// password is accepted.
func (e *Engine) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := e.ready(); err != nil {
		return err
	}
	email := NormalizeEmail(req.Email)

	identity, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return BadRequest(MsgInvalidEmail)
		}
		return Internal(err)
	}

	fail := func(err error) error {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, identity.ID, email, err, nil)
		return err
	}

	if err := e.checkOtp(ctx, identity.ID, OtpPasswordReset, req.Otp); err != nil {
		return fail(err)
	}
	if !password.Matches(req.Password, req.ConfirmPassword) {
		return fail(BadRequest(MsgPasswordsMismatch))
	}
	if !password.IsStrong(req.Password) {
		return fail(BadRequest(MsgPasswordWeak))
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return fail(mapHashError(err))
	}
	if err := e.consumeOtp(ctx, identity.ID, OtpPasswordReset); err != nil {
		return err
	}
	identity.PasswordHash = hash
	if err := e.users.Update(ctx, identity); err != nil {
		return Internal(err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, identity.ID, email, nil, nil)
	return nil
}

// mapHashError turns hasher input rejections into a weak-password error.
func mapHashError(err error) error {
	if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword) {
		return BadRequest(MsgPasswordWeak)
	}
	return Internal(err)
}
