package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/schema"
	"github.com/BaSui01/flowkit/tracing"
	"github.com/BaSui01/flowkit/types"
)

// Config declares an action. Schemas may be given structurally, as raw JSON
// Schema, or omitted, in which case they are inferred from the Go types.
type Config[I, O, S any] struct {
	Name             string
	Type             registry.ActionType
	Description      string
	Metadata         map[string]any
	InputSchema      *schema.Schema
	InputJSONSchema  json.RawMessage
	OutputSchema     *schema.Schema
	OutputJSONSchema json.RawMessage
	Use              []Middleware[I, O, S]
}

// Action is a named, schema-validated, traced and metered function. It
// implements registry.Action.
type Action[I, O, S any] struct {
	name    string
	subtype string
	desc    registry.ActionDesc
	reg     *registry.Registry

	inputOpts  schema.Options
	outputOpts schema.Options
	fn         Fn[I, O, S]
}

// Define builds an action from cfg and registers it on r. It panics on a
// malformed name, a provider-scoped name with no matching plugin, or a
// duplicate registration: all are programmer errors at startup.
func Define[I, O, S any](r *registry.Registry, cfg Config[I, O, S], fn Fn[I, O, S]) *Action[I, O, S] {
	validateName(r, cfg.Name)

	typ := cfg.Type
	if typ == "" {
		typ = registry.ActionTypeCustom
	}

	inputOpts, inputJSON, err := resolveSchema[I](cfg.InputSchema, cfg.InputJSONSchema)
	if err != nil {
		panic(fmt.Sprintf("action %q: resolve input schema: %v", cfg.Name, err))
	}
	outputOpts, outputJSON, err := resolveSchema[O](cfg.OutputSchema, cfg.OutputJSONSchema)
	if err != nil {
		panic(fmt.Sprintf("action %q: resolve output schema: %v", cfg.Name, err))
	}

	subtype, _ := cfg.Metadata["subtype"].(string)

	a := &Action[I, O, S]{
		name:    cfg.Name,
		subtype: subtype,
		reg:     r,
		desc: registry.ActionDesc{
			Type:         typ,
			Key:          registry.NewKey(typ, cfg.Name),
			Name:         cfg.Name,
			Description:  cfg.Description,
			Metadata:     cfg.Metadata,
			InputSchema:  inputJSON,
			OutputSchema: outputJSON,
		},
		inputOpts:  inputOpts,
		outputOpts: outputOpts,
		fn:         ChainMiddleware(cfg.Use...)(fn),
	}

	if err := r.RegisterAction(a); err != nil {
		panic(fmt.Sprintf("define action: %v", err))
	}
	return a
}

func validateName(r *registry.Registry, name string) {
	if name == "" {
		panic("action name must not be empty")
	}
	parts := strings.Split(name, "/")
	switch len(parts) {
	case 1:
	case 2:
		if parts[0] == "" || parts[1] == "" {
			panic(fmt.Sprintf("action name %q has an empty segment", name))
		}
		if !r.HasPlugin(parts[0]) {
			panic(fmt.Sprintf("action name %q references plugin %q which is not registered", name, parts[0]))
		}
	default:
		panic(fmt.Sprintf("action name %q must be \"name\" or \"plugin/name\"", name))
	}
}

func resolveSchema[T any](structural *schema.Schema, raw json.RawMessage) (schema.Options, json.RawMessage, error) {
	switch {
	case len(raw) > 0:
		return schema.Options{JSONSchema: raw}, raw, nil
	case structural != nil:
		js, err := structural.JSONSchema()
		if err != nil {
			return schema.Options{}, nil, err
		}
		return schema.Options{Schema: structural}, js, nil
	default:
		inferred, err := schema.Infer[T]()
		if err != nil {
			return schema.Options{}, nil, err
		}
		return schema.Options{JSONSchema: inferred}, inferred, nil
	}
}

// Name returns the action's registered name.
func (a *Action[I, O, S]) Name() string { return a.name }

// Desc returns the action's registry descriptor.
func (a *Action[I, O, S]) Desc() registry.ActionDesc { return a.desc }

// Run validates input, executes the middleware-wrapped function inside a new
// span, validates output, and records request metrics. Invalid input fails
// with INVALID_ARGUMENT before the function runs; invalid output is the
// action author's bug and fails with INTERNAL.
func (a *Action[I, O, S]) Run(ctx context.Context, input I, cb StreamCallback[S]) (O, error) {
	if err := schema.Parse(input, a.inputOpts); err != nil {
		var zero O
		return zero, types.NewError(types.StatusInvalidArgument,
			"invalid input for action %q", a.name).WithCause(err)
	}

	start := time.Now()
	var spanPath string
	out, err := tracing.RunInNewSpan(ctx, a.reg.Tracer(), a.name, "action", a.subtype, input,
		func(ctx context.Context, in I) (O, error) {
			spanPath = tracing.MustSpanMeta(ctx).Path
			if cb != nil {
				ctx = withChunkSender(ctx, func(ctx context.Context, chunk any) error {
					s, err := convertChunk[S](chunk)
					if err != nil {
						return err
					}
					return cb(ctx, s)
				})
			}

			out, err := a.fn(ctx, in, cb)
			if err != nil {
				return out, err
			}
			if err := schema.Parse(out, a.outputOpts); err != nil {
				return out, types.NewError(types.StatusInternal,
					"action %q produced invalid output", a.name).WithCause(err)
			}
			return out, nil
		})
	a.reg.Metrics().RecordRequest(a.name, FlowName(ctx), spanPath, time.Since(start), err)
	return out, err
}

// RunJSON executes the action across the JSON boundary: input is
// unmarshaled into the action's input type, streaming chunks and the final
// output are marshaled back out.
func (a *Action[I, O, S]) RunJSON(ctx context.Context, raw json.RawMessage, cb func(context.Context, json.RawMessage) error) (json.RawMessage, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	var input I
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, types.NewError(types.StatusInvalidArgument,
			"unmarshal input for action %q", a.name).WithCause(err)
	}

	var scb StreamCallback[S]
	if cb != nil {
		scb = func(ctx context.Context, chunk S) error {
			b, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			return cb(ctx, b)
		}
	}

	out, err := a.Run(ctx, input, scb)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, types.NewError(types.StatusInternal,
			"marshal output of action %q", a.name).WithCause(err)
	}
	return b, nil
}
