package storefront

import (
	"context"
	"errors"
)

// SendEmailVerificationOtp mails a fresh verification code to an unverified
// account, replacing any earlier one.
func (e *Engine) SendEmailVerificationOtp(ctx context.Context, email string) error {
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
	if identity.EmailVerified {
		return BadRequest(MsgEmailAlreadyVerified)
	}

	if err := e.throttleOtp(ctx, identity, OtpEmailVerify); err != nil {
		return err
	}
	return e.issueOtp(ctx, identity, OtpEmailVerify)
}

// VerifyEmail marks the account verified when code matches its outstanding,
// unexpired verification code. The code is consumed on success.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string) error {
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
	if identity.EmailVerified {
		return BadRequest(MsgEmailAlreadyVerified)
	}

	if err := e.checkOtp(ctx, identity.ID, OtpEmailVerify, code); err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationVerify, false, identity.ID, email, err, nil)
		return err
	}

	if err := e.consumeOtp(ctx, identity.ID, OtpEmailVerify); err != nil {
		return err
	}
	identity.EmailVerified = true
	if err := e.users.Update(ctx, identity); err != nil {
		return Internal(err)
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerificationVerify, true, identity.ID, email, nil, nil)
	return nil
}
