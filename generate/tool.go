package generate

import (
	"context"
	"encoding/json"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
)

// ToolRef is the generate loop's view of a callable tool.
type ToolRef interface {
	Name() string
	Definition() ToolDefinition
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Tool is a registered typed tool action.
type Tool[I, O any] struct {
	name        string
	description string
	action      *action.Action[I, O, struct{}]
}

// DefineTool registers a tool on r under /tool/<name>.
func DefineTool[I, O any](r *registry.Registry, name, description string, fn func(ctx context.Context, input I) (O, error)) *Tool[I, O] {
	a := action.Define(r, action.Config[I, O, struct{}]{
		Name:        name,
		Type:        registry.ActionTypeTool,
		Description: description,
		Metadata:    map[string]any{"subtype": "tool"},
	}, func(ctx context.Context, input I, _ action.StreamCallback[struct{}]) (O, error) {
		return fn(ctx, input)
	})
	return &Tool[I, O]{name: name, description: description, action: a}
}

// Name returns the tool's registered name.
func (t *Tool[I, O]) Name() string { return t.name }

// Definition returns the model-facing description of the tool.
func (t *Tool[I, O]) Definition() ToolDefinition {
	desc := t.action.Desc()
	return ToolDefinition{
		Name:        t.name,
		Description: t.description,
		InputSchema: desc.InputSchema,
	}
}

// Execute runs the tool across the JSON boundary, validating input against
// the tool's schema.
func (t *Tool[I, O]) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return t.action.RunJSON(ctx, input, nil)
}

// Run executes the tool with typed input.
func (t *Tool[I, O]) Run(ctx context.Context, input I) (O, error) {
	return t.action.Run(ctx, input, nil)
}
