package storefront

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/storefront/password"
)

// Register creates an unverified USER account and mails it a verification
// code. Checks run in order: email taken, passwords match, password strong.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	email := NormalizeEmail(req.Email)

	reject := func(id MetricID, err error) (Identity, error) {
		e.metricInc(id)
		e.emitAudit(ctx, auditEventRegisterFailure, false, 0, email, err, nil)
		return Identity{}, err
	}

	if email == "" {
		return reject(MetricRegisterRejected, BadRequest(MsgInvalidEmail))
	}

	if _, err := e.users.GetByEmail(ctx, email); err == nil {
		return reject(MetricRegisterDuplicate, Conflict(MsgEmailTaken))
	} else if !errors.Is(err, ErrRecordNotFound) {
		return Identity{}, Internal(err)
	}

	if !password.Matches(req.Password, req.ConfirmPassword) {
		return reject(MetricRegisterRejected, BadRequest(MsgPasswordsMismatch))
	}
	if !password.IsStrong(req.Password) {
		return reject(MetricRegisterRejected, BadRequest(MsgPasswordWeak))
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return reject(MetricRegisterRejected, mapHashError(err))
	}

	identity := Identity{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         RoleUser,
	}
	if err := e.users.Create(ctx, &identity); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return reject(MetricRegisterDuplicate, Conflict(MsgEmailTaken))
		}
		return Identity{}, Internal(err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, identity.ID, email, nil, nil)

	if err := e.issueOtp(ctx, identity, OtpEmailVerify); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// GetAccount returns the account with the given id to its owner or an admin.
func (e *Engine) GetAccount(ctx context.Context, caller Principal, userID int64) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	if !caller.IsAdmin() && !caller.Owns(userID) {
		e.denied(ctx, caller, "get_account")
		return Identity{}, Forbidden(MsgAccessDenied)
	}
	return e.lookup(ctx, userID)
}

// ListAccounts returns every account. Admin only.
func (e *Engine) ListAccounts(ctx context.Context, caller Principal) ([]Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		e.denied(ctx, caller, "list_accounts")
		return nil, Forbidden(MsgAccessDenied)
	}
	list, err := e.users.List(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	return list, nil
}

// UpdateAccount changes the owner's display name. Only the owner may update.
func (e *Engine) UpdateAccount(ctx context.Context, caller Principal, userID int64, req UpdateAccountRequest) (Identity, error) {
	if err := e.ready(); err != nil {
		return Identity{}, err
	}
	if !caller.Owns(userID) {
		e.denied(ctx, caller, "update_account")
		return Identity{}, Forbidden(MsgAccessDenied)
	}
	identity, err := e.lookup(ctx, userID)
	if err != nil {
		return Identity{}, err
	}

	identity.FirstName = strings.TrimSpace(req.FirstName)
	identity.LastName = strings.TrimSpace(req.LastName)
	if err := e.users.Update(ctx, identity); err != nil {
		return Identity{}, Internal(err)
	}

	e.metricInc(MetricAccountUpdated)
	e.emitAudit(ctx, auditEventAccountUpdate, true, identity.ID, identity.Email, nil, nil)
	return identity, nil
}

// ChangePassword replaces the owner's password after checking the current
// one. The new password must differ from the old, match its confirmation
// and satisfy the password policy.
func (e *Engine) ChangePassword(ctx context.Context, caller Principal, userID int64, req ChangePasswordRequest) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !caller.Owns(userID) {
		e.denied(ctx, caller, "change_password")
		return Forbidden(MsgAccessDenied)
	}
	identity, err := e.lookup(ctx, userID)
	if err != nil {
		return err
	}

	fail := func(id MetricID, err error) error {
		e.metricInc(id)
		e.emitAudit(ctx, auditEventPasswordChange, false, identity.ID, identity.Email, err, nil)
		return err
	}

	ok, err := e.hasher.Verify(req.OldPassword, identity.PasswordHash)
	if err != nil {
		return Internal(err)
	}
	if !ok {
		return fail(MetricPasswordChangeWrongCurrent, Forbidden(MsgIncorrectPassword))
	}
	if req.OldPassword == req.NewPassword {
		return fail(MetricPasswordChangeReuseRejected, Forbidden(MsgPasswordReuse))
	}
	if !password.Matches(req.NewPassword, req.ConfirmNewPassword) {
		return fail(MetricPasswordChangeMismatch, Forbidden(MsgNewPasswordMismatch))
	}
	if !password.IsStrong(req.NewPassword) {
		return fail(MetricPasswordChangeWeak, BadRequest(MsgPasswordWeak))
	}

	hash, err := e.hasher.Hash(req.NewPassword)
	if err != nil {
		return mapHashError(err)
	}
	identity.PasswordHash = hash
	if err := e.users.Update(ctx, identity); err != nil {
		return Internal(err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, identity.ID, identity.Email, nil, nil)
	return nil
}

// DeleteAccount removes an account and its outstanding codes. The owner or an
// admin may delete.
func (e *Engine) DeleteAccount(ctx context.Context, caller Principal, userID int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !caller.IsAdmin() && !caller.Owns(userID) {
		e.denied(ctx, caller, "delete_account")
		return Forbidden(MsgAccessDenied)
	}
	identity, err := e.lookup(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.otps.DeleteAllForUser(ctx, userID); err != nil {
		return Internal(err)
	}
	if err := e.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return NotFound(MsgUserNotFound)
		}
		return Internal(err)
	}

	e.metricInc(MetricAccountDeleted)
	e.emitAudit(ctx, auditEventAccountDelete, true, identity.ID, identity.Email, nil, func() map[string]string {
		return map[string]string{
			"actor": caller.String(),
		}
	})
	return nil
}

// EnsureAdmin creates a verified ADMIN account unless the email is already
// registered. It returns the existing or created account and whether it was
// created. The password policy is not applied.
func (e *Engine) EnsureAdmin(ctx context.Context, email, plain string) (Identity, bool, error) {
	if err := e.ready(); err != nil {
		return Identity{}, false, err
	}
	email = NormalizeEmail(email)
	if email == "" || plain == "" {
		return Identity{}, false, BadRequest(MsgInvalidCredentials)
	}

	existing, err := e.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return Identity{}, false, Internal(err)
	}

	hash, err := e.hasher.Hash(plain)
	if err != nil {
		return Identity{}, false, Internal(err)
	}
	identity := Identity{
		Email:         email,
		PasswordHash:  hash,
		FirstName:     "Admin",
		EmailVerified: true,
		Role:          RoleAdmin,
	}
	if err := e.users.Create(ctx, &identity); err != nil {
		return Identity{}, false, Internal(err)
	}

	e.emitAudit(ctx, auditEventAdminSeeded, true, identity.ID, email, nil, nil)
	return identity, true, nil
}

func (e *Engine) lookup(ctx context.Context, userID int64) (Identity, error) {
	identity, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Identity{}, NotFound(MsgUserNotFound)
		}
		return Identity{}, Internal(err)
	}
	return identity, nil
}

func (e *Engine) denied(ctx context.Context, caller Principal, action string) {
	e.metricInc(MetricAccessDeniedRole)
	e.emitAudit(ctx, auditEventAccessDenied, false, caller.UserID, caller.Email, Forbidden(MsgAccessDenied), func() map[string]string {
		return map[string]string{
			"action": action,
		}
	})
}
