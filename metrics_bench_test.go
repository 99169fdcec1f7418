package storefront

import (
	"testing"
	"time"
)

// storefrontTraffic approximates the counter mix of a shop admin backend:
// mostly authenticated requests and refreshes, a trickle of codes.
var storefrontTraffic = [...]MetricID{
	MetricRefreshSuccess,
	MetricLoginSuccess,
	MetricRefreshSuccess,
	MetricAccessDeniedToken,
	MetricRefreshSuccess,
	MetricOtpIssuedEmailVerify,
	MetricLoginFailure,
	MetricOtpIssuedPasswordReset,
}

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.Inc(MetricLoginSuccess)
			}
		})
	}
}

// BenchmarkMetricsTrafficParallel spreads increments over the traffic mix so
// that neighbouring counters are hit from every goroutine.
func BenchmarkMetricsTrafficParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Inc(storefrontTraffic[i&(len(storefrontTraffic)-1)])
			i++
		}
	})
}

func BenchmarkOtpMetricsLookup(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	purposes := [2]OtpPurpose{OtpEmailVerify, OtpPasswordReset}
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		m.Inc(OtpMetrics(purposes[i&1]).Issued)
	}
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	samples := [...]time.Duration{300 * time.Microsecond, 4 * time.Millisecond, 12 * time.Millisecond, 70 * time.Millisecond}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Observe(MetricValidateLatency, samples[i&3])
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range storefrontTraffic {
		m.Inc(id)
	}
	m.Observe(MetricValidateLatency, time.Millisecond)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
