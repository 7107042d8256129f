// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package flowkit is the top-level entry point: it assembles configuration,
// logging, telemetry and the action registry, and re-exports the typed
// definition helpers so most applications only import this package.
package flowkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/config"
	"github.com/BaSui01/flowkit/flow"
	"github.com/BaSui01/flowkit/generate"
	"github.com/BaSui01/flowkit/internal/telemetry"
	"github.com/BaSui01/flowkit/metrics"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/tracing"
)

// FlowKit owns the shared runtime: one registry, one telemetry pipeline,
// one logger.
type FlowKit struct {
	cfg       *config.Config
	logger    *zap.Logger
	ownLogger bool
	providers *telemetry.Providers
	tracer    *tracing.Tracer
	reg       *registry.Registry
}

type options struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	registerer prometheus.Registerer
	plugins    []registry.Plugin
}

// Option configures New.
type Option func(*options)

// WithConfig supplies a ready configuration, skipping file and env loading.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads configuration from a YAML file.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger supplies an external logger; its lifecycle stays with the
// caller.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetricsRegisterer overrides the Prometheus registerer, which defaults
// to the process-global one.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithPlugins registers plugins at startup. Their Init still runs lazily.
func WithPlugins(plugins ...registry.Plugin) Option {
	return func(o *options) { o.plugins = append(o.plugins, plugins...) }
}

// New assembles a FlowKit runtime.
func New(opts ...Option) (*FlowKit, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loader := config.NewLoader()
		if o.configPath != "" {
			loader = loader.WithConfigPath(o.configPath)
		}
		loaded, err := loader.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	fk := &FlowKit{cfg: cfg, logger: o.logger}
	if fk.logger == nil {
		logger, err := config.NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		fk.logger = logger
		fk.ownLogger = true
	}

	providers, err := telemetry.Init(cfg.Telemetry, fk.logger)
	if err != nil {
		return nil, err
	}
	fk.providers = providers

	if tp := providers.TracerProvider(); tp != nil {
		fk.tracer = tracing.New(tracing.WithTracerProvider(tp), tracing.WithLogger(fk.logger))
	} else {
		fk.tracer = tracing.New(tracing.WithLogger(fk.logger))
	}

	registerer := o.registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	collector := metrics.NewCollector("flowkit", registerer, fk.logger)

	fk.reg = registry.New(
		registry.WithLogger(fk.logger),
		registry.WithTracer(fk.tracer),
		registry.WithMetrics(collector),
	)

	for _, p := range o.plugins {
		if err := fk.reg.RegisterPlugin(p); err != nil {
			return nil, err
		}
	}
	return fk, nil
}

// Registry returns the shared action registry.
func (fk *FlowKit) Registry() *registry.Registry { return fk.reg }

// Logger returns the runtime logger.
func (fk *FlowKit) Logger() *zap.Logger { return fk.logger }

// Config returns the active configuration.
func (fk *FlowKit) Config() *config.Config { return fk.cfg }

// Shutdown flushes telemetry and releases runtime resources.
func (fk *FlowKit) Shutdown(ctx context.Context) error {
	var errs []error
	if err := fk.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := fk.providers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if fk.ownLogger {
		// Sync failures on closed stderr are routine at exit.
		_ = fk.logger.Sync()
	}
	return errors.Join(errs...)
}

// DefineFlow registers a non-streaming flow.
func DefineFlow[I, O any](fk *FlowKit, name string, fn func(ctx context.Context, input I) (O, error)) *flow.Flow[I, O, struct{}] {
	return flow.Define(fk.reg, name, func(ctx context.Context, input I, _ action.StreamCallback[struct{}]) (O, error) {
		return fn(ctx, input)
	})
}

// DefineStreamingFlow registers a flow that emits S-typed chunks.
func DefineStreamingFlow[I, O, S any](fk *FlowKit, name string, fn action.Fn[I, O, S]) *flow.Flow[I, O, S] {
	return flow.Define(fk.reg, name, fn)
}

// DefineBidiFlow registers a bidirectional streaming flow.
func DefineBidiFlow[Init, In, Out, Final any](fk *FlowKit, name string, fn flow.BidiFunc[Init, In, Out, Final]) *flow.BidiFlow[Init, In, Out, Final] {
	return flow.DefineBidi(fk.reg, name, fn)
}

// DefineTool registers a typed tool.
func DefineTool[I, O any](fk *FlowKit, name, description string, fn func(ctx context.Context, input I) (O, error)) *generate.Tool[I, O] {
	return generate.DefineTool(fk.reg, name, description, fn)
}

// DefineModel registers a model implementation.
func DefineModel(fk *FlowKit, name string, fn generate.ModelFunc, mw ...generate.ModelMiddleware) *generate.Model {
	return generate.DefineModel(fk.reg, name, fn, mw...)
}

// Generate runs the model/tool loop against this runtime's registry.
func Generate(ctx context.Context, fk *FlowKit, opts ...generate.GenerateOption) (*generate.ModelResponse, error) {
	return generate.Generate(ctx, fk.reg, opts...)
}

// RunStep executes a named, memoized step inside a flow body.
func RunStep[T any](ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	return flow.Run(ctx, name, fn)
}
