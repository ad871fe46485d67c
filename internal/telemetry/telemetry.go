// Package telemetry wires OpenTelemetry tracing and Sentry error
// reporting. Both are disabled unless configured.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/shyim/lighthouse-compare/internal/config"
)

const flushTimeout = 5 * time.Second

type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	sentry         bool
}

func Setup(ctx context.Context, opts config.TelemetryOptions) (*Telemetry, error) {
	t := &Telemetry{}

	if opts.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.OTLPEndpoint))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create otlp exporter")
		}

		res := resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(opts.ServiceName),
			attribute.String("service.component", "harness"),
		)

		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(t.tracerProvider)
	}

	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.Environment,
		}); err != nil {
			return nil, errors.Wrap(err, "failed to init sentry")
		}
		t.sentry = true
	}

	return t, nil
}

// CaptureError reports err to Sentry with the given tags. It is a no-op
// when Sentry is not configured.
func (t *Telemetry) CaptureError(err error, tags map[string]string) {
	if t == nil || !t.sentry || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// Shutdown flushes pending spans and events.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if t.sentry {
		sentry.Flush(flushTimeout)
	}
	if t.tracerProvider != nil {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		return t.tracerProvider.Shutdown(ctx)
	}
	return nil
}
