package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/MrEthical07/storefront"
	otelexport "github.com/MrEthical07/storefront/metrics/export/otel"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newOTelHandler registers the engine metrics with an in-process OTel meter
// provider and serves the last collection as JSON.
func newOTelHandler(engine *storefront.Engine) (http.Handler, func() error, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := otelexport.NewOTelExporter(provider.Meter("storefront"), engine)
	if err != nil {
		return nil, nil, fmt.Errorf("otel init error: %w", err)
	}

	shutdown := func() error {
		return errors.Join(exp.Close(), provider.Shutdown(context.Background()))
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(r.Context(), &rm); err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, flatten(rm))
	})
	return h, shutdown, nil
}

// flatten reduces the collected data to one point per series. Only int64
// sums and gauges are produced by the exporter.
func flatten(rm metricdata.ResourceMetrics) []otelPoint {
	var out []otelPoint
	add := func(name string, attrs attribute.Set, v int64) {
		p := otelPoint{Name: name, Value: v}
		if attrs.Len() > 0 {
			p.Attributes = make(map[string]string, attrs.Len())
			for _, kv := range attrs.ToSlice() {
				p.Attributes[string(kv.Key)] = kv.Value.Emit()
			}
		}
		out = append(out, p)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					add(m.Name, dp.Attributes, dp.Value)
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type otelPoint struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      int64             `json:"value"`
}

// withOTel serves the OTel view for /metrics?format=otel and Prometheus text
// otherwise.
func withOTel(prom, otel http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "otel" {
			otel.ServeHTTP(w, r)
			return
		}
		prom.ServeHTTP(w, r)
	})
}
