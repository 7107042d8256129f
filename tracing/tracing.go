package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const instrumentationName = "github.com/BaSui01/flowkit/tracing"

// Tracer owns the span pipeline for a registry. With no exporter and no
// external provider it degrades to no-op spans, so instrumented code never
// has to branch on whether telemetry is configured.
type Tracer struct {
	provider trace.TracerProvider
	sdk      *sdktrace.TracerProvider
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option configures a Tracer.
type Option func(*options)

type options struct {
	provider trace.TracerProvider
	exporter sdktrace.SpanExporter
	dev      bool
	logger   *zap.Logger
}

// WithTracerProvider plugs in an externally managed provider. The Tracer
// will not own its lifecycle: Flush and Shutdown become no-ops.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.provider = tp }
}

// WithExporter builds an SDK provider around exp. Ignored when an external
// provider is configured.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// WithDev exports spans synchronously instead of batching, trading
// throughput for immediate visibility during development.
func WithDev(dev bool) Option {
	return func(o *options) { o.dev = dev }
}

// WithLogger sets the logger for export failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds a Tracer from the given options.
func New(opts ...Option) *Tracer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	t := &Tracer{logger: o.logger}
	switch {
	case o.provider != nil:
		t.provider = o.provider
	case o.exporter != nil:
		var tp *sdktrace.TracerProvider
		if o.dev {
			tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(o.exporter))
		} else {
			tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(o.exporter))
		}
		t.provider = tp
		t.sdk = tp
	default:
		t.provider = noop.NewTracerProvider()
	}
	t.tracer = t.provider.Tracer(instrumentationName)
	return t
}

// Flush forces pending spans through the exporter. No-op for external or
// no-op providers.
func (t *Tracer) Flush(ctx context.Context) error {
	if t == nil || t.sdk == nil {
		return nil
	}
	return t.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the owned provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.sdk == nil {
		return nil
	}
	if err := t.sdk.Shutdown(ctx); err != nil {
		t.logger.Warn("trace provider shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func (t *Tracer) otel() trace.Tracer {
	if t == nil || t.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return t.tracer
}
