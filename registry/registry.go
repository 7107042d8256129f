package registry

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/flowkit/metrics"
	"github.com/BaSui01/flowkit/tracing"
	"github.com/BaSui01/flowkit/types"
)

// ActionType categorizes registered actions. The type is the first segment
// of an action key.
type ActionType string

const (
	ActionTypeFlow      ActionType = "flow"
	ActionTypeModel     ActionType = "model"
	ActionTypeTool      ActionType = "tool"
	ActionTypeRetriever ActionType = "retriever"
	ActionTypeIndexer   ActionType = "indexer"
	ActionTypeEmbedder  ActionType = "embedder"
	ActionTypeEvaluator ActionType = "evaluator"
	ActionTypeReranker  ActionType = "reranker"
	ActionTypeUtil      ActionType = "util"
	ActionTypeCustom    ActionType = "custom"
)

// ActionDesc is the serializable description of a registered action.
type ActionDesc struct {
	Type         ActionType      `json:"type"`
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
}

// Action is the registry's view of an executable unit. Concrete typed
// actions live in the action package; the registry only needs the JSON
// boundary.
type Action interface {
	Name() string
	Desc() ActionDesc
	RunJSON(ctx context.Context, input json.RawMessage, cb func(context.Context, json.RawMessage) error) (json.RawMessage, error)
}

// Plugin contributes actions to a registry. Init is deferred until one of
// the plugin's actions is first needed.
type Plugin interface {
	Name() string
	Init(ctx context.Context, r *Registry) error
}

// DynamicPlugin additionally resolves actions on demand, for providers whose
// action set cannot be enumerated up front.
type DynamicPlugin interface {
	Plugin
	ResolveAction(ctx context.Context, r *Registry, typ ActionType, name string) error
}

// NewKey builds the canonical action key "/<type>/<name>".
func NewKey(typ ActionType, name string) string {
	return "/" + string(typ) + "/" + name
}

type pluginEntry struct {
	plugin Plugin
	once   sync.Once
	err    error
}

func (e *pluginEntry) init(ctx context.Context, r *Registry) error {
	e.once.Do(func() {
		e.err = e.plugin.Init(ctx, r)
		if e.err != nil {
			r.logger.Error("plugin init failed",
				zap.String("plugin", e.plugin.Name()), zap.Error(e.err))
		}
	})
	return e.err
}

// Registry indexes actions by key and owns the shared telemetry pipeline
// handed to every action defined against it.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	plugins map[string]*pluginEntry
	values  map[string]any

	tracer    *tracing.Tracer
	collector *metrics.Collector
	logger    *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithTracer sets the tracer handed to actions.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithMetrics sets the metrics collector handed to actions.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Registry) { r.collector = c }
}

// New builds a Registry. Missing telemetry options default to no-op tracing
// and a private metrics registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]Action),
		plugins: make(map[string]*pluginEntry),
		values:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.tracer == nil {
		r.tracer = tracing.New(tracing.WithLogger(r.logger))
	}
	if r.collector == nil {
		r.collector = metrics.NewCollector("flowkit", prometheus.NewRegistry(), r.logger)
	}
	return r
}

// Tracer returns the shared tracer.
func (r *Registry) Tracer() *tracing.Tracer { return r.tracer }

// Metrics returns the shared metrics collector.
func (r *Registry) Metrics() *metrics.Collector { return r.collector }

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger { return r.logger }

// RegisterAction indexes a under its descriptor key. Registering the same
// key twice is an ALREADY_EXISTS error.
func (r *Registry) RegisterAction(a Action) error {
	key := a.Desc().Key
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[key]; ok {
		return types.NewError(types.StatusAlreadyExists, "action %q is already registered", key)
	}
	r.actions[key] = a
	r.logger.Debug("registered action", zap.String("key", key))
	return nil
}

// RegisterPlugin records p without initializing it.
func (r *Registry) RegisterPlugin(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[p.Name()]; ok {
		return types.NewError(types.StatusAlreadyExists, "plugin %q is already registered", p.Name())
	}
	r.plugins[p.Name()] = &pluginEntry{plugin: p}
	return nil
}

// HasPlugin reports whether a plugin is registered under name.
func (r *Registry) HasPlugin(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// lookup returns the action currently indexed under key.
func (r *Registry) lookup(key string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[key]
	return a, ok
}

// LookupAction resolves key, lazily initializing the owning plugin: for a
// provider-scoped name ("provider/rest") that is the first segment, otherwise
// a plugin registered under the whole name. A missing action is (nil, nil);
// only plugin failures produce an error.
func (r *Registry) LookupAction(ctx context.Context, key string) (Action, error) {
	if a, ok := r.lookup(key); ok {
		return a, nil
	}

	typ, name, ok := splitKey(key)
	if !ok {
		return nil, nil
	}
	provider, rest, scoped := strings.Cut(name, "/")
	if !scoped {
		// A separator-free name can still belong to a plugin registered
		// under exactly that name.
		provider, rest = name, name
	}

	r.mu.RLock()
	entry := r.plugins[provider]
	r.mu.RUnlock()
	if entry == nil {
		return nil, nil
	}
	if err := entry.init(ctx, r); err != nil {
		return nil, types.NewError(types.StatusInternal, "initialize plugin %q", provider).WithCause(err)
	}
	if a, ok := r.lookup(key); ok {
		return a, nil
	}

	// The plugin initialized without registering this action; give dynamic
	// plugins one chance to resolve it by name.
	if dp, ok := entry.plugin.(DynamicPlugin); ok {
		if err := dp.ResolveAction(ctx, r, typ, rest); err != nil {
			return nil, types.NewError(types.StatusInternal, "resolve action %q", key).WithCause(err)
		}
		if a, ok := r.lookup(key); ok {
			return a, nil
		}
	}
	return nil, nil
}

// ListActions initializes every registered plugin and returns all action
// descriptors sorted by key.
func (r *Registry) ListActions(ctx context.Context) ([]ActionDesc, error) {
	r.mu.RLock()
	entries := make([]*pluginEntry, 0, len(r.plugins))
	for _, e := range r.plugins {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		g.Go(func() error { return e.init(gctx, r) })
	}
	if err := g.Wait(); err != nil {
		return nil, types.NewError(types.StatusInternal, "initialize plugins").WithCause(err)
	}

	r.mu.RLock()
	descs := make([]ActionDesc, 0, len(r.actions))
	for _, a := range r.actions {
		descs = append(descs, a.Desc())
	}
	r.mu.RUnlock()

	sort.Slice(descs, func(i, j int) bool { return descs[i].Key < descs[j].Key })
	return descs, nil
}

// RegisterValue stashes an arbitrary shared value (prompt templates, format
// handlers) under name.
func (r *Registry) RegisterValue(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = value
}

// LookupValue returns a value registered with RegisterValue.
func (r *Registry) LookupValue(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

func splitKey(key string) (ActionType, string, bool) {
	if !strings.HasPrefix(key, "/") {
		return "", "", false
	}
	typ, name, ok := strings.Cut(key[1:], "/")
	if !ok || typ == "" || name == "" {
		return "", "", false
	}
	return ActionType(typ), name, true
}
