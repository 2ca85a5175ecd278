package telemetry

import (
	"context"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/env"
)

// TraceExporter selects where spans are sent.
type TraceExporter string

const (
	TraceExporterNone     TraceExporter = "none"
	TraceExporterConsole  TraceExporter = "console"
	TraceExporterOTLPHTTP TraceExporter = "otlpHttp"
	TraceExporterOTLPGRPC TraceExporter = "otlpGrpc"
	TraceExporterHTTP     TraceExporter = "http"

	TraceExporterEnv         = "RELPLAN_TELEMETRY_TRACE_EXPORTER"
	TraceExporterInsecureEnv = "RELPLAN_TELEMETRY_TRACE_EXPORTER_INSECURE_ENDPOINT"
	TraceExporterEndpointEnv = "RELPLAN_TELEMETRY_TRACE_EXPORTER_HTTP_ENDPOINT"
	TraceParentEnv           = "TRACEPARENT"

	traceParentParts = 4
)

// Options configure a telemeter built with NewTelemeterWithOptions.
type Options struct {
	// Vars is the environment holding the RELPLAN_TELEMETRY_* settings and TRACEPARENT.
	Vars map[string]string
	// Writer receives spans from the console exporter.
	Writer     io.Writer
	AppName    string
	AppVersion string
}

// NewTelemeterWithOptions creates a telemeter that exports spans as selected by the environment. Without an
// exporter it behaves like NewTelemeter.
func NewTelemeterWithOptions(ctx context.Context, opts Options) (*Telemeter, error) {
	tlm, err := NewTelemeter(opts.AppName, opts.AppVersion)
	if err != nil {
		return nil, err
	}

	exporter, err := NewTraceExporter(ctx, opts)
	if err != nil {
		return nil, err
	}

	if exporter == nil {
		return tlm, nil
	}

	if traceParent := opts.Vars[TraceParentEnv]; traceParent != "" {
		parent, err := parseTraceParent(traceParent)
		if err != nil {
			return nil, errors.Join(err, exporter.Shutdown(ctx))
		}

		tlm.parent = parent
	}

	provider, err := newTraceProvider(opts, exporter)
	if err != nil {
		return nil, errors.Join(err, exporter.Shutdown(ctx))
	}

	otel.SetTracerProvider(provider)

	tlm.provider = provider
	tlm.tracer = provider.Tracer(opts.AppName, trace.WithInstrumentationVersion(opts.AppVersion))

	return tlm, nil
}

// NewTraceExporter returns the exporter selected by RELPLAN_TELEMETRY_TRACE_EXPORTER, or nil for none.
func NewTraceExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	exporterType := TraceExporterNone
	if val := opts.Vars[TraceExporterEnv]; val != "" {
		exporterType = TraceExporter(val)
	}

	insecure := env.GetBool(opts.Vars, TraceExporterInsecureEnv, false)

	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch exporterType {
	case TraceExporterNone:
		return nil, nil
	case TraceExporterHTTP:
		endpoint := opts.Vars[TraceExporterEndpointEnv]
		if endpoint == "" {
			return nil, errors.New(MissingEnvVariableError{Vars: []string{TraceExporterEndpointEnv}})
		}

		config := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecure {
			config = append(config, otlptracehttp.WithInsecure())
		}

		exporter, err = otlptracehttp.New(ctx, config...)
	case TraceExporterOTLPHTTP:
		var config []otlptracehttp.Option
		if insecure {
			config = append(config, otlptracehttp.WithInsecure())
		}

		exporter, err = otlptracehttp.New(ctx, config...)
	case TraceExporterOTLPGRPC:
		var config []otlptracegrpc.Option
		if insecure {
			config = append(config, otlptracegrpc.WithInsecure())
		}

		exporter, err = otlptracegrpc.New(ctx, config...)
	case TraceExporterConsole:
		writer := opts.Writer
		if writer == nil {
			writer = io.Discard
		}

		exporter, err = stdouttrace.New(stdouttrace.WithWriter(writer))
	default:
		return nil, errors.New(UnknownExporterError{Exporter: string(exporterType)})
	}

	if err != nil {
		return nil, errors.Errorf("creating %s trace exporter: %w", exporterType, err)
	}

	return exporter, nil
}

func newTraceProvider(opts Options, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(opts.AppName),
			semconv.ServiceVersion(opts.AppVersion),
		),
	)
	if err != nil {
		return nil, errors.New(err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// parseTraceParent reads a W3C traceparent value: version-traceid-spanid-flags.
func parseTraceParent(val string) (trace.SpanContext, error) {
	parts := strings.Split(val, "-")
	if len(parts) != traceParentParts {
		return trace.SpanContext{}, errors.New(InvalidTraceParentError{Value: val})
	}

	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return trace.SpanContext{}, errors.New(InvalidTraceParentError{Value: val, Err: err})
	}

	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return trace.SpanContext{}, errors.New(InvalidTraceParentError{Value: val, Err: err})
	}

	flags, err := strconv.Atoi(parts[3])
	if err != nil {
		return trace.SpanContext{}, errors.New(InvalidTraceParentError{Value: val, Err: err})
	}

	traceFlags := trace.FlagsSampled
	if flags == 0 {
		traceFlags = 0
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: traceFlags,
		Remote:     true,
	}), nil
}
