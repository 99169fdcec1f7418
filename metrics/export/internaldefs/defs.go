package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/storefront"
)

// Label is one name="value" pair attached to a series.
type Label struct {
	Key   string
	Value string
}

// Series binds one engine counter to its labels within a family.
type Series struct {
	ID     storefront.MetricID
	Labels []Label
}

// Family is one exported counter name. Engine counters that differ only by
// outcome, purpose or reason share a family and are told apart by labels.
type Family struct {
	Name   string
	Help   string
	Series []Series
}

// HistogramDef maps the engine latency histogram to its exported name.
type HistogramDef struct {
	ID   storefront.MetricID
	Name string
	Help string
}

func unlabelled(id storefront.MetricID) []Series {
	return []Series{{ID: id}}
}

func result(pairs ...any) []Series {
	out := make([]Series, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Series{
			ID:     pairs[i].(storefront.MetricID),
			Labels: []Label{{Key: "result", Value: pairs[i+1].(string)}},
		})
	}
	return out
}

func perPurpose(pick func(storefront.OtpMetricSet) storefront.MetricID, extra ...Label) []Series {
	out := make([]Series, 0, 2)
	for _, p := range []storefront.OtpPurpose{storefront.OtpEmailVerify, storefront.OtpPasswordReset} {
		labels := append([]Label{{Key: "purpose", Value: p.String()}}, extra...)
		out = append(out, Series{ID: pick(storefront.OtpMetrics(p)), Labels: labels})
	}
	return out
}

func otpRejections() []Series {
	var out []Series
	out = append(out, perPurpose(func(s storefront.OtpMetricSet) storefront.MetricID { return s.RateLimited }, Label{"reason", "rate_limited"})...)
	out = append(out, perPurpose(func(s storefront.OtpMetricSet) storefront.MetricID { return s.Invalid }, Label{"reason", "invalid"})...)
	out = append(out, perPurpose(func(s storefront.OtpMetricSet) storefront.MetricID { return s.Expired }, Label{"reason", "expired"})...)
	return out
}

func accessDenied() []Series {
	status := strconv.Itoa(storefront.StatusOf(storefront.KindForbidden))
	return []Series{
		{ID: storefront.MetricAccessDeniedToken, Labels: []Label{{"status", status}, {"reason", "token"}}},
		{ID: storefront.MetricAccessDeniedRole, Labels: []Label{{"status", status}, {"reason", "role"}}},
	}
}

// Families lists every exported counter family in render order.
var Families = []Family{
	{
		Name: "storefront_register_total",
		Help: "Registration attempts by result.",
		Series: result(
			storefront.MetricRegisterSuccess, "success",
			storefront.MetricRegisterDuplicate, "duplicate",
			storefront.MetricRegisterRejected, "rejected",
		),
	},
	{
		Name: "storefront_login_total",
		Help: "Login attempts by result.",
		Series: result(
			storefront.MetricLoginSuccess, "success",
			storefront.MetricLoginFailure, "bad_credentials",
			storefront.MetricLoginUnverified, "unverified",
		),
	},
	{
		Name: "storefront_refresh_total",
		Help: "Refresh token rotations by result.",
		Series: result(
			storefront.MetricRefreshSuccess, "success",
			storefront.MetricRefreshFailure, "rejected",
			storefront.MetricRefreshReuseDetected, "reused",
		),
	},
	{Name: "storefront_logout_total", Help: "Logout requests.", Series: unlabelled(storefront.MetricLogout)},
	{
		Name:   "storefront_otp_issued_total",
		Help:   "One-time codes stored and mailed, by purpose.",
		Series: perPurpose(func(s storefront.OtpMetricSet) storefront.MetricID { return s.Issued }),
	},
	{
		Name:   "storefront_otp_rejected_total",
		Help:   "One-time code requests and submissions refused, by purpose and reason.",
		Series: otpRejections(),
	},
	{
		Name:   "storefront_notification_failure_total",
		Help:   "Code emails that could not be delivered, by purpose.",
		Series: perPurpose(func(s storefront.OtpMetricSet) storefront.MetricID { return s.NotificationFailure }),
	},
	{
		Name: "storefront_email_verification_total",
		Help: "Email verification submissions by result.",
		Series: result(
			storefront.MetricEmailVerificationSuccess, "success",
			storefront.MetricEmailVerificationFailure, "failure",
		),
	},
	{
		Name: "storefront_password_reset_total",
		Help: "Password reset steps by result.",
		Series: result(
			storefront.MetricPasswordResetRequest, "requested",
			storefront.MetricPasswordResetSuccess, "success",
			storefront.MetricPasswordResetFailure, "failure",
		),
	},
	{
		Name: "storefront_password_change_total",
		Help: "Password changes by result.",
		Series: result(
			storefront.MetricPasswordChangeSuccess, "success",
			storefront.MetricPasswordChangeWrongCurrent, "wrong_current",
			storefront.MetricPasswordChangeReuseRejected, "reused",
			storefront.MetricPasswordChangeMismatch, "mismatch",
			storefront.MetricPasswordChangeWeak, "weak",
		),
	},
	{Name: "storefront_password_rehashed_total", Help: "Stored hashes upgraded at login.", Series: unlabelled(storefront.MetricPasswordRehashed)},
	{
		Name: "storefront_account_changes_total",
		Help: "Account profile changes by action.",
		Series: []Series{
			{ID: storefront.MetricAccountUpdated, Labels: []Label{{"action", "updated"}}},
			{ID: storefront.MetricAccountDeleted, Labels: []Label{{"action", "deleted"}}},
		},
	},
	{
		Name:   "storefront_access_denied_total",
		Help:   "Requests refused by the access token filter or an ownership/role check, by response status and reason.",
		Series: accessDenied(),
	},
}

// Latency is the exported access token authentication histogram.
var Latency = HistogramDef{
	ID:   storefront.MetricValidateLatency,
	Name: "storefront_authenticate_latency_seconds",
	Help: "Access token authentication latency.",
}

// Audit dispatcher counters. Dropped events carry an outcome label.
const (
	AuditDeliveredName = "storefront_audit_delivered_total"
	AuditDroppedName   = "storefront_audit_dropped_total"
)

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets.
var HistogramBounds = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// CumulativeBuckets converts per-bucket counts to running totals. Missing
// buckets count as zero.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(HistogramBounds))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}

// Observed reports whether a snapshot carries any data worth exporting.
func Observed(snapshot storefront.MetricsSnapshot, audit storefront.AuditStats) bool {
	return len(snapshot.Counters) > 0 || len(snapshot.Histograms) > 0 ||
		audit.Delivered > 0 || audit.Dropped() > 0
}
