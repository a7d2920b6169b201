package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"cptmerge/internal/config"
	"cptmerge/pkg/contracts"
)

// MeterName is the instrumentation scope for every instrument we create.
const MeterName = "cptmerge"

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel wires the Prometheus metric exporter and, when enabled, a
// stdout span exporter. Each call uses a private Prometheus registry so
// repeated initialization in tests does not collide.
func InitializeOTel(cfg config.ObservabilityConfig, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(contracts.Version),
		attribute.String("service.instance.id", instanceID()),
	)

	providers := &OTelProviders{Logger: logger}

	if cfg.TracingEnabled {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName)
		otel.SetTracerProvider(tp)
	} else {
		providers.Tracer = otel.Tracer(MeterName)
	}

	if cfg.MetricsEnabled {
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(contracts.Version))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		otel.SetMeterProvider(mp)
	} else {
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.TracingEnabled),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// BusinessMetrics holds the application-specific instruments.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	UploadsTotal        metric.Int64Counter
	RecordsParsed       metric.Int64Counter
	ParseFailures       metric.Int64Counter
	ComputationFailures metric.Int64Counter
	ExportsTotal        metric.Int64Counter
	RenderDuration      metric.Float64Histogram
	ActiveSessions      metric.Int64UpDownCounter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests")); err != nil {
		return nil, err
	}
	if m.UploadsTotal, err = meter.Int64Counter("cpt_uploads_total",
		metric.WithDescription("Spreadsheet files accepted")); err != nil {
		return nil, err
	}
	if m.RecordsParsed, err = meter.Int64Counter("cpt_records_parsed_total",
		metric.WithDescription("Depth records parsed from spreadsheets")); err != nil {
		return nil, err
	}
	if m.ParseFailures, err = meter.Int64Counter("cpt_parse_failures_total",
		metric.WithDescription("Spreadsheets rejected by the parser")); err != nil {
		return nil, err
	}
	if m.ComputationFailures, err = meter.Int64Counter("cpt_computation_failures_total",
		metric.WithDescription("Soundings rejected while computing elevation or SBT index")); err != nil {
		return nil, err
	}
	if m.ExportsTotal, err = meter.Int64Counter("cpt_exports_total",
		metric.WithDescription("Chart exports by format")); err != nil {
		return nil, err
	}
	if m.RenderDuration, err = meter.Float64Histogram("cpt_render_duration_seconds",
		metric.WithDescription("Chart render duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.ActiveSessions, err = meter.Int64UpDownCounter("cpt_active_sessions",
		metric.WithDescription("Open merge sessions")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordUpload counts an accepted file and its records.
func (m *BusinessMetrics) RecordUpload(ctx context.Context, records int) {
	if m == nil {
		return
	}
	m.UploadsTotal.Add(ctx, 1)
	m.RecordsParsed.Add(ctx, int64(records))
}

// RecordParseFailure counts a rejected file, tagged by failure kind.
func (m *BusinessMetrics) RecordParseFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ParseFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordComputationFailure counts a sounding whose derived columns could not be computed.
func (m *BusinessMetrics) RecordComputationFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.ComputationFailures.Add(ctx, 1)
}

// RecordExport counts an export and the time spent rendering it.
func (m *BusinessMetrics) RecordExport(ctx context.Context, format, variable string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("variable", variable),
	)
	m.ExportsTotal.Add(ctx, 1, attrs)
	m.RenderDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSessionDelta adjusts the open session gauge.
func (m *BusinessMetrics) RecordSessionDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func instanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}
