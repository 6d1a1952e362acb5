package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelAPI forwards every report to an inner API and additionally records
// counts and breakages as OpenTelemetry instruments, keyed by report id.
type OtelAPI struct {
	inner   API
	counts  metric.Int64Gauge
	broken  metric.Int64Counter
	warning metric.Int64Counter
}

// NewOtelAPI creates an OtelAPI using the globally registered meter provider.
func NewOtelAPI(inner API, meterName string) OtelAPI {
	meter := otel.Meter(meterName)
	// instrument creation only fails on invalid names, which are constant here.
	counts, _ := meter.Int64Gauge("report.count")
	broken, _ := meter.Int64Counter("report.broken")
	warning, _ := meter.Int64Counter("report.warning")
	return OtelAPI{
		inner:   inner,
		counts:  counts,
		broken:  broken,
		warning: warning,
	}
}

func (o OtelAPI) ReportBroken(id string, params ...any) {
	o.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportBroken(id, params...)
}

func (o OtelAPI) ReportWarning(id string, params ...any) {
	o.warning.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportWarning(id, params...)
}

func (o OtelAPI) ReportDebug(msg string, params ...any) {
	o.inner.ReportDebug(msg, params...)
}

func (o OtelAPI) ReportCount(id string, count int64) {
	o.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportCount(id, count)
}
