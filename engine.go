package storefront

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/storefront/internal/audit"
	"github.com/MrEthical07/storefront/internal/logging"
	"github.com/MrEthical07/storefront/internal/rate"
	"github.com/MrEthical07/storefront/jwt"
	"github.com/MrEthical07/storefront/session"
)

// Engine runs the credential lifecycle: registration, login, token refresh,
// email verification, password reset and self-service account changes.
// Build one with [New]; all methods are safe for concurrent use.
type Engine struct {
	config    Config
	users     UserStore
	otps      OtpStore
	notifier  Notifier
	hasher    PasswordHasher
	codec     *jwt.Codec
	transport *session.Transport
	codes     CodeGenerator
	limiter   *rate.Limiter
	revoker   RefreshRevoker
	audit     *audit.Dispatcher
	metrics   *Metrics
	log       logging.Logger
	now       func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditStats returns delivery and drop counts of the audit dispatcher.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Transport returns the cookie transport used for issued tokens.
func (e *Engine) Transport() *session.Transport {
	if e == nil {
		return nil
	}
	return e.transport
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.otps == nil || e.codec == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Login authenticates an email/password pair and writes fresh access and
// refresh cookies to w. Unknown emails and wrong passwords fail alike with
// [MsgInvalidCredentials]; an unverified account fails with
// [MsgEmailNotVerified] and receives no cookies.
func (e *Engine) Login(ctx context.Context, w http.ResponseWriter, req LoginRequest) (Principal, error) {
	if err := e.ready(); err != nil {
		return Principal{}, err
	}
	email := NormalizeEmail(req.Email)

	identity, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return Principal{}, Internal(err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, 0, email, Unauthorized(MsgInvalidCredentials), func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return Principal{}, Unauthorized(MsgInvalidCredentials)
	}

	ok, err := e.hasher.Verify(req.Password, identity.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			e.log.Warn(ctx, "password verification failed", "user_id", identity.ID, "error", err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity.ID, email, Unauthorized(MsgInvalidCredentials), func() map[string]string {
			return map[string]string{
				"reason": "bad_password",
			}
		})
		return Principal{}, Unauthorized(MsgInvalidCredentials)
	}

	if !identity.EmailVerified {
		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity.ID, email, Forbidden(MsgEmailNotVerified), nil)
		return Principal{}, Forbidden(MsgEmailNotVerified)
	}

	e.upgradeHash(ctx, &identity, req.Password)

	if err := e.issueTokens(w, identity); err != nil {
		return Principal{}, Internal(err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, email, nil, nil)
	return PrincipalOf(identity), nil
}

// RefreshTokens exchanges a refresh token for a new access/refresh pair,
// written to w. The current role and email are re-read from the store.
func (e *Engine) RefreshTokens(ctx context.Context, w http.ResponseWriter, refreshToken string) (Principal, error) {
	if err := e.ready(); err != nil {
		return Principal{}, err
	}

	claims, err := e.codec.ValidateRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, 0, "", Forbidden(MsgInvalidRefreshToken), func() map[string]string {
			return map[string]string{
				"reason": "invalid_token",
			}
		})
		return Principal{}, Forbidden(MsgInvalidRefreshToken)
	}

	if e.revoker != nil {
		revoked, err := e.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Principal{}, Internal(err)
		}
		if revoked {
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.UserID, "", errRefreshReuse, nil)
			return Principal{}, Forbidden(MsgInvalidRefreshToken)
		}
	}

	identity, err := e.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return Principal{}, Internal(err)
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UserID, "", Forbidden(MsgInvalidRefreshToken), func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return Principal{}, Forbidden(MsgInvalidRefreshToken)
	}

	if e.revoker != nil {
		remaining := claims.ExpiresAt.Time.Sub(e.now())
		if err := e.revoker.Revoke(ctx, claims.ID, remaining); err != nil {
			if !errors.Is(err, session.ErrAlreadyRevoked) {
				return Principal{}, Internal(err)
			}
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.UserID, "", errRefreshReuse, nil)
			return Principal{}, Forbidden(MsgInvalidRefreshToken)
		}
	}

	if err := e.issueTokens(w, identity); err != nil {
		return Principal{}, Internal(err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, identity.ID, identity.Email, nil, nil)
	return PrincipalOf(identity), nil
}

// Logout clears both token cookies. It never fails; tokens already handed
// out stay valid until they expire.
func (e *Engine) Logout(ctx context.Context, w http.ResponseWriter) {
	if e == nil || e.transport == nil {
		return
	}
	e.transport.Clear(w)

	var userID int64
	var email string
	if p, ok := PrincipalFromContext(ctx); ok {
		userID, email = p.UserID, p.Email
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, email, nil, nil)
}

// AuthenticateAccess resolves an access token to the stored account it was
// issued for. Invalid or expired tokens and unknown subjects fail with
// [MsgTokenRejected]; store failures are internal.
func (e *Engine) AuthenticateAccess(ctx context.Context, token string) (Principal, error) {
	if err := e.ready(); err != nil {
		return Principal{}, err
	}
	start := time.Now()
	defer e.metricObserve(MetricValidateLatency, start)

	claims, err := e.codec.ValidateAccess(token)
	if err != nil {
		e.metricInc(MetricAccessDeniedToken)
		return Principal{}, Forbidden(MsgTokenRejected)
	}

	identity, err := e.users.GetByEmail(ctx, NormalizeEmail(claims.Subject))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricAccessDeniedToken)
			e.emitAudit(ctx, auditEventAccessDenied, false, claims.UserID, claims.Subject, Forbidden(MsgTokenRejected), func() map[string]string {
				return map[string]string{
					"reason": "subject_not_found",
				}
			})
			return Principal{}, Forbidden(MsgTokenRejected)
		}
		return Principal{}, Internal(err)
	}

	return PrincipalOf(identity), nil
}

func (e *Engine) issueTokens(w http.ResponseWriter, identity Identity) error {
	subject := jwt.Subject{
		Email:  identity.Email,
		UserID: identity.ID,
		Role:   identity.Role.String(),
	}
	access, err := e.codec.IssueAccess(subject)
	if err != nil {
		return err
	}
	refresh, err := e.codec.IssueRefresh(subject)
	if err != nil {
		return err
	}
	if w != nil {
		e.transport.Write(w, access, refresh)
	}
	return nil
}

type upgradeChecker interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

// upgradeHash rehashes the password when the stored hash was produced with
// weaker parameters. Failures are logged and never fail the login.
func (e *Engine) upgradeHash(ctx context.Context, identity *Identity, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	checker, ok := e.hasher.(upgradeChecker)
	if !ok {
		return
	}
	needs, err := checker.NeedsUpgrade(identity.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		e.log.Warn(ctx, "password rehash failed", "user_id", identity.ID, "error", err)
		return
	}
	updated := *identity
	updated.PasswordHash = hash
	if err := e.users.Update(ctx, updated); err != nil {
		e.log.Warn(ctx, "password rehash persist failed", "user_id", identity.ID, "error", err)
		return
	}
	*identity = updated
	e.metricInc(MetricPasswordRehashed)
}
