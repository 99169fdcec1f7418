package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() storefront.MetricsSnapshot
	AuditStats() storefront.AuditStats
}

// series is one engine counter observed on a family instrument under a
// fixed attribute set.
type series struct {
	id   storefront.MetricID
	opts metric.ObserveOption
}

type family struct {
	instrument metric.Int64ObservableCounter
	series     []series
}

// OTelExporter mirrors engine counters into asynchronous OTel instruments.
// Each counter family becomes one instrument whose series are told apart by
// attributes.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	families     []family

	latencyBuckets metric.Int64ObservableGauge
	latencyCount   metric.Int64ObservableGauge
	bucketOpts     []metric.ObserveOption

	auditDelivered metric.Int64ObservableCounter
	auditDropped   metric.Int64ObservableCounter
	droppedSuccess metric.ObserveOption
	droppedFailure metric.ObserveOption
}

func NewOTelExporter(meter metric.Meter, engine *storefront.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:         source,
		families:       make([]family, 0, len(internaldefs.Families)),
		droppedSuccess: observeWith(internaldefs.Label{Key: "outcome", Value: "success"}),
		droppedFailure: observeWith(internaldefs.Label{Key: "outcome", Value: "failure"}),
	}
	observables := make([]metric.Observable, 0, len(internaldefs.Families)+4)

	for _, def := range internaldefs.Families {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		f := family{instrument: ins, series: make([]series, 0, len(def.Series))}
		for _, s := range def.Series {
			f.series = append(f.series, series{id: s.ID, opts: observeWith(s.Labels...)})
		}
		e.families = append(e.families, f)
		observables = append(observables, ins)
	}

	var err error
	name := internaldefs.Latency.Name
	if e.latencyBuckets, err = meter.Int64ObservableGauge(name+"_bucket", metric.WithDescription("Cumulative latency bucket counts, by upper bound.")); err != nil {
		return nil, fmt.Errorf("create gauge %s_bucket: %w", name, err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(name+"_count", metric.WithDescription("Latency samples recorded.")); err != nil {
		return nil, fmt.Errorf("create gauge %s_count: %w", name, err)
	}
	for _, le := range internaldefs.HistogramBounds {
		e.bucketOpts = append(e.bucketOpts, observeWith(internaldefs.Label{Key: "le", Value: le}))
	}
	if e.auditDelivered, err = meter.Int64ObservableCounter(internaldefs.AuditDeliveredName, metric.WithDescription("Audit events handed to the sink.")); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDeliveredName, err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription("Audit events shed under dispatcher backpressure, by event outcome.")); err != nil {
		return nil, fmt.Errorf("create counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	observables = append(observables, e.latencyBuckets, e.latencyCount, e.auditDelivered, e.auditDropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	stats := e.source.AuditStats()

	if len(snapshot.Counters) > 0 {
		for _, f := range e.families {
			for _, s := range f.series {
				o.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.opts)
			}
		}
	}
	if raw, ok := snapshot.Histograms[internaldefs.Latency.ID]; ok {
		cumulative := internaldefs.CumulativeBuckets(raw)
		for i, opts := range e.bucketOpts {
			o.ObserveInt64(e.latencyBuckets, int64(cumulative[i]), opts)
		}
		o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDelivered, int64(stats.Delivered))
	o.ObserveInt64(e.auditDropped, int64(stats.DroppedSuccess), e.droppedSuccess)
	o.ObserveInt64(e.auditDropped, int64(stats.DroppedFailure), e.droppedFailure)
	return nil
}

func observeWith(labels ...internaldefs.Label) metric.ObserveOption {
	kvs := make([]attribute.KeyValue, 0, len(labels))
	for _, l := range labels {
		kvs = append(kvs, attribute.String(l.Key, l.Value))
	}
	return metric.WithAttributeSet(attribute.NewSet(kvs...))
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
