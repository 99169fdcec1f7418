package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() storefront.MetricsSnapshot
	AuditStats() storefront.AuditStats
}

// PrometheusExporter renders engine metrics in the Prometheus text format.
type PrometheusExporter struct {
	source metricsSource
}

func NewPrometheusExporter(engine *storefront.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource renders from any snapshot provider.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves [PrometheusExporter.Render].
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text, or "" when metrics are disabled and
// the audit dispatcher has seen nothing.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	stats := p.source.AuditStats()
	if !internaldefs.Observed(snapshot, stats) {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	if len(snapshot.Counters) > 0 {
		for _, f := range internaldefs.Families {
			header(&b, f.Name, f.Help, "counter")
			for _, s := range f.Series {
				sample(&b, f.Name, s.Labels, snapshot.Counters[s.ID])
			}
		}
	}

	if raw, ok := snapshot.Histograms[internaldefs.Latency.ID]; ok {
		writeLatency(&b, raw)
	}

	header(&b, internaldefs.AuditDeliveredName, "Audit events handed to the sink.", "counter")
	sample(&b, internaldefs.AuditDeliveredName, nil, stats.Delivered)
	header(&b, internaldefs.AuditDroppedName, "Audit events shed under dispatcher backpressure, by event outcome.", "counter")
	sample(&b, internaldefs.AuditDroppedName, []internaldefs.Label{{Key: "outcome", Value: "success"}}, stats.DroppedSuccess)
	sample(&b, internaldefs.AuditDroppedName, []internaldefs.Label{{Key: "outcome", Value: "failure"}}, stats.DroppedFailure)

	return b.String()
}

func writeLatency(b *strings.Builder, raw []uint64) {
	def := internaldefs.Latency
	cumulative := internaldefs.CumulativeBuckets(raw)

	header(b, def.Name, def.Help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		sample(b, def.Name+"_bucket", []internaldefs.Label{{Key: "le", Value: le}}, cumulative[i])
	}
	sample(b, def.Name+"_count", nil, cumulative[len(cumulative)-1])
	// snapshots keep bucket counts only
	sample(b, def.Name+"_sum", nil, 0)
}

func header(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escape(help, false))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func sample(b *strings.Builder, name string, labels []internaldefs.Label, value uint64) {
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(l.Key)
			b.WriteString(`="`)
			b.WriteString(escape(l.Value, true))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escape(s string, quoted bool) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	if quoted {
		s = strings.ReplaceAll(s, `"`, `\"`)
	}
	return s
}
