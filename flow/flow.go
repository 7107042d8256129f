package flow

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/state"
	"github.com/BaSui01/flowkit/types"
)

// Flow is a named, traced, streamable orchestration. It is backed by an
// action of type flow and adds step memoization and optional durability.
type Flow[I, O, S any] struct {
	name   string
	reg    *registry.Registry
	action *action.Action[I, O, S]
}

// Define registers a flow on r. The flow's body may call Run to execute
// memoized steps and action.SendChunk to stream.
func Define[I, O, S any](r *registry.Registry, name string, fn action.Fn[I, O, S]) *Flow[I, O, S] {
	f := &Flow[I, O, S]{name: name, reg: r}
	f.action = action.Define(r, action.Config[I, O, S]{
		Name:     name,
		Type:     registry.ActionTypeFlow,
		Metadata: map[string]any{"subtype": "flow"},
	}, f.wrap(fn))
	return f
}

func (f *Flow[I, O, S]) wrap(fn action.Fn[I, O, S]) action.Fn[I, O, S] {
	return func(ctx context.Context, input I, cb action.StreamCallback[S]) (O, error) {
		fc := flowContextFrom(ctx)
		if fc == nil {
			fc = newFlowContext(f.name, f.reg.Logger(), nil, "")
			ctx = withFlowContext(ctx, fc)
		}
		ctx = action.WithFlowName(ctx, f.name)
		return fn(ctx, input, cb)
	}
}

// Name returns the flow name.
func (f *Flow[I, O, S]) Name() string { return f.name }

// Action exposes the underlying action, for callers operating at the JSON
// boundary.
func (f *Flow[I, O, S]) Action() *action.Action[I, O, S] { return f.action }

type runOptions struct {
	localCtx    action.Context
	hasLocalCtx bool
	store       state.Store
	runID       string
}

// RunOption adjusts a single flow invocation.
type RunOption func(*runOptions)

// WithLocalContext attaches per-request ambient data to the invocation.
func WithLocalContext(c action.Context) RunOption {
	return func(o *runOptions) {
		o.localCtx = c
		o.hasLocalCtx = true
	}
}

// WithStateStore makes the invocation durable: completed step results are
// persisted under runID and replayed when the same runID runs again. An
// empty runID gets a fresh UUID.
func WithStateStore(store state.Store, runID string) RunOption {
	return func(o *runOptions) {
		o.store = store
		o.runID = runID
	}
}

// Run executes the flow to completion.
func (f *Flow[I, O, S]) Run(ctx context.Context, input I, opts ...RunOption) (O, error) {
	return f.run(ctx, input, nil, opts...)
}

func (f *Flow[I, O, S]) run(ctx context.Context, input I, cb action.StreamCallback[S], opts ...RunOption) (O, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasLocalCtx {
		ctx = action.WithContext(ctx, o.localCtx)
	}

	fc := newFlowContext(f.name, f.reg.Logger(), o.store, o.runID)
	if o.store != nil {
		if fc.runID == "" {
			fc.runID = uuid.NewString()
		}
		if err := fc.restore(ctx, input); err != nil {
			var zero O
			return zero, err
		}
	}
	ctx = withFlowContext(ctx, fc)

	out, err := f.action.Run(ctx, input, cb)
	if o.store != nil {
		fc.finish(ctx, out, err)
	}
	return out, err
}

// RunID reports the durable run ID of the enclosing flow invocation, or ""
// for ephemeral runs.
func RunID(ctx context.Context) string {
	if fc := flowContextFrom(ctx); fc != nil {
		return fc.runID
	}
	return ""
}

// flowContext is the per-invocation execution state shared by the flow body
// and its steps.
type flowContext struct {
	flowName string
	runID    string
	logger   *zap.Logger
	store    state.Store

	mu    sync.Mutex
	cache map[string]json.RawMessage
	seen  map[string]int
	run   *state.FlowRun
}

type flowCtxKey struct{}

func withFlowContext(ctx context.Context, fc *flowContext) context.Context {
	return context.WithValue(ctx, flowCtxKey{}, fc)
}

func flowContextFrom(ctx context.Context) *flowContext {
	fc, _ := ctx.Value(flowCtxKey{}).(*flowContext)
	return fc
}

func newFlowContext(flowName string, logger *zap.Logger, store state.Store, runID string) *flowContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &flowContext{
		flowName: flowName,
		runID:    runID,
		logger:   logger,
		store:    store,
		cache:    make(map[string]json.RawMessage),
		seen:     make(map[string]int),
	}
}

// restore primes the step cache from a previously persisted run, or seeds a
// fresh running snapshot.
func (fc *flowContext) restore(ctx context.Context, input any) error {
	run, err := fc.store.Load(ctx, fc.runID)
	switch {
	case err == nil:
		fc.mu.Lock()
		for k, v := range run.StepCache {
			fc.cache[k] = v
		}
		run.Status = state.RunStatusRunning
		fc.run = run
		fc.mu.Unlock()
		return nil
	case err == state.ErrNotFound:
		raw, merr := json.Marshal(input)
		if merr != nil {
			raw = nil
		}
		fc.mu.Lock()
		fc.run = &state.FlowRun{
			ID:        fc.runID,
			FlowName:  fc.flowName,
			Status:    state.RunStatusRunning,
			Input:     raw,
			StepCache: fc.cache,
		}
		fc.mu.Unlock()
		return fc.persist(ctx)
	default:
		return types.NewError(types.StatusInternal, "load flow run %q", fc.runID).WithCause(err)
	}
}

// nextOccurrence returns the zero-based occurrence index for a step name
// within this invocation.
func (fc *flowContext) nextOccurrence(name string) int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	n := fc.seen[name]
	fc.seen[name] = n + 1
	return n
}

func (fc *flowContext) cached(key string) (json.RawMessage, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	v, ok := fc.cache[key]
	return v, ok
}

// record caches a completed step and persists the snapshot when durable.
// Persistence failures are logged, not fatal: the in-memory run proceeds.
func (fc *flowContext) record(ctx context.Context, key string, value json.RawMessage) {
	fc.mu.Lock()
	fc.cache[key] = value
	if fc.run != nil {
		fc.run.StepCache = fc.cache
	}
	fc.mu.Unlock()

	if fc.store != nil {
		if err := fc.persist(ctx); err != nil {
			fc.logger.Warn("persist flow step failed",
				zap.String("flow", fc.flowName),
				zap.String("run_id", fc.runID),
				zap.String("step", key),
				zap.Error(err))
		}
	}
}

func (fc *flowContext) persist(ctx context.Context) error {
	fc.mu.Lock()
	run := fc.run
	fc.mu.Unlock()
	if run == nil {
		return nil
	}
	return fc.store.Save(ctx, run)
}

// finish stamps the terminal status and persists the final snapshot.
func (fc *flowContext) finish(ctx context.Context, output any, runErr error) {
	fc.mu.Lock()
	if fc.run == nil {
		fc.mu.Unlock()
		return
	}
	if runErr != nil {
		fc.run.Status = state.RunStatusFailed
	} else {
		fc.run.Status = state.RunStatusCompleted
		if raw, err := json.Marshal(output); err == nil {
			fc.run.Output = raw
		}
	}
	fc.mu.Unlock()

	if err := fc.persist(ctx); err != nil {
		fc.logger.Warn("persist flow run failed",
			zap.String("flow", fc.flowName),
			zap.String("run_id", fc.runID),
			zap.Error(err))
	}
}
