package storefront

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricRegisterRejected
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginUnverified
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricLogout

	// OTP counters are kept per purpose; see [OtpMetrics].
	MetricOtpIssuedEmailVerify
	MetricOtpIssuedPasswordReset
	MetricOtpRateLimitedEmailVerify
	MetricOtpRateLimitedPasswordReset
	MetricOtpInvalidEmailVerify
	MetricOtpInvalidPasswordReset
	MetricOtpExpiredEmailVerify
	MetricOtpExpiredPasswordReset
	MetricNotificationFailureEmailVerify
	MetricNotificationFailurePasswordReset

	MetricEmailVerificationSuccess
	MetricEmailVerificationFailure
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeWrongCurrent
	MetricPasswordChangeReuseRejected
	MetricPasswordChangeMismatch
	MetricPasswordChangeWeak
	MetricPasswordRehashed
	MetricAccountUpdated
	MetricAccountDeleted

	// MetricAccessDeniedToken counts access tokens refused by the filter;
	// MetricAccessDeniedRole counts authenticated callers refused an action.
	MetricAccessDeniedToken
	MetricAccessDeniedRole

	// MetricValidateLatency is the only histogram: access token
	// authentication latency.
	MetricValidateLatency
	metricIDCount
)

// OtpMetricSet names the counters kept for one OTP purpose.
type OtpMetricSet struct {
	Issued, RateLimited, Invalid, Expired, NotificationFailure MetricID
}

// OtpMetrics returns the counters for purpose.
func OtpMetrics(purpose OtpPurpose) OtpMetricSet {
	if purpose == OtpPasswordReset {
		return OtpMetricSet{
			Issued:              MetricOtpIssuedPasswordReset,
			RateLimited:         MetricOtpRateLimitedPasswordReset,
			Invalid:             MetricOtpInvalidPasswordReset,
			Expired:             MetricOtpExpiredPasswordReset,
			NotificationFailure: MetricNotificationFailurePasswordReset,
		}
	}
	return OtpMetricSet{
		Issued:              MetricOtpIssuedEmailVerify,
		RateLimited:         MetricOtpRateLimitedEmailVerify,
		Invalid:             MetricOtpInvalidEmailVerify,
		Expired:             MetricOtpExpiredEmailVerify,
		NotificationFailure: MetricNotificationFailureEmailVerify,
	}
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil or disabled Metrics ignores
// every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values. Histogram
// buckets are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only [MetricValidateLatency] is a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, plus the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
