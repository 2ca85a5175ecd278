// Package telemetry collects traces and metrics from the phases of a run and from every registry check.
//
// Spans go to the exporter selected by RELPLAN_TELEMETRY_TRACE_EXPORTER, or to the globally registered
// OpenTelemetry tracer provider when none is selected. Metrics are kept in a private Prometheus registry that can
// be gathered or written to a textfile for the node exporter.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/relplan/relplan/internal/errors"
)

const namespace = "relplan"

// Telemeter records spans and metrics. A nil Telemeter records nothing.
type Telemeter struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	registry *prometheus.Registry
	metrics  *metrics
	parent   trace.SpanContext
}

// NewTelemeter creates a telemeter whose spans are named after appName.
func NewTelemeter(appName, appVersion string) (*Telemeter, error) {
	registry := prometheus.NewRegistry()

	m, err := newMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Telemeter{
		tracer:   otel.Tracer(appName, trace.WithInstrumentationVersion(appVersion)),
		registry: registry,
		metrics:  m,
	}, nil
}

// Registry returns the Prometheus registry holding every metric.
func (tlm *Telemeter) Registry() *prometheus.Registry {
	if tlm == nil {
		return nil
	}

	return tlm.registry
}

// Collect runs fn inside a span named name and records its duration as a phase.
func (tlm *Telemeter) Collect(ctx context.Context, name string, attrs map[string]any, fn func(childCtx context.Context) error) error {
	if tlm == nil {
		return fn(ctx)
	}

	if tlm.parent.IsValid() && !trace.SpanContextFromContext(ctx).IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, tlm.parent)
	}

	ctx, span := tlm.tracer.Start(ctx, name, trace.WithAttributes(mapToAttributes(attrs)...))
	defer span.End()

	started := time.Now()
	err := fn(ctx)

	tlm.metrics.phaseDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		tlm.metrics.phaseErrors.WithLabelValues(name, string(errors.KindOf(err))).Inc()
	}

	return err
}

// ObserveCheck records the outcome of one registry check.
func (tlm *Telemeter) ObserveCheck(channel, status string, duration time.Duration) {
	if tlm == nil {
		return
	}

	tlm.metrics.checks.WithLabelValues(channel, status).Inc()
	tlm.metrics.checkDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// ObservePackages records the number of packages per state at the end of a run.
func (tlm *Telemeter) ObservePackages(state string, count int) {
	if tlm == nil {
		return
	}

	tlm.metrics.packages.WithLabelValues(state).Set(float64(count))
}

// WriteTextfile writes every metric in the Prometheus text format to path, atomically.
func (tlm *Telemeter) WriteTextfile(path string) error {
	if tlm == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, tlm.registry); err != nil {
		return errors.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}

// Shutdown flushes pending spans to the exporter.
func (tlm *Telemeter) Shutdown(ctx context.Context) error {
	if tlm == nil || tlm.provider == nil {
		return nil
	}

	if err := tlm.provider.Shutdown(ctx); err != nil {
		return errors.Errorf("flushing traces: %w", err)
	}

	return nil
}
