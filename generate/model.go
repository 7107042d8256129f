package generate

import (
	"context"
	"encoding/json"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/types"
)

// FinishReason reports why a model stopped generating.
type FinishReason string

const (
	FinishReasonStop        FinishReason = "stop"
	FinishReasonLength      FinishReason = "length"
	FinishReasonToolCalls   FinishReason = "toolCalls"
	FinishReasonInterrupted FinishReason = "interrupted"
	FinishReasonError       FinishReason = "error"
	FinishReasonUnknown     FinishReason = "unknown"
)

// ToolDefinition is the model-facing description of a callable tool.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ModelRequest is one turn's input to a model.
type ModelRequest struct {
	Messages []types.Message  `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Config   map[string]any   `json:"config,omitempty"`
}

// Usage is the token accounting of one model turn.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// ModelResponse is one turn's output. Generate augments it with History (the
// full message list including this turn) and, for paused generations, the
// pending Interrupts.
type ModelResponse struct {
	Message      *types.Message  `json:"message,omitempty"`
	FinishReason FinishReason    `json:"finishReason"`
	Usage        *Usage          `json:"usage,omitempty"`
	Interrupts   []*Interrupt    `json:"interrupts,omitempty"`
	History      []types.Message `json:"-"`
}

// ModelResponseChunk is one streamed fragment of a model turn.
type ModelResponseChunk struct {
	Content string `json:"content"`
}

// ModelFunc is the implementation of a model action.
type ModelFunc = action.Fn[*ModelRequest, *ModelResponse, *ModelResponseChunk]

// ModelMiddleware wraps a ModelFunc. Middlewares given at definition time
// run on every call; middlewares given per Generate call wrap those.
type ModelMiddleware = action.Middleware[*ModelRequest, *ModelResponse, *ModelResponseChunk]

// Model is a registered model action.
type Model struct {
	name   string
	action *action.Action[*ModelRequest, *ModelResponse, *ModelResponseChunk]
}

// DefineModel registers a model on r under /model/<name>.
func DefineModel(r *registry.Registry, name string, fn ModelFunc, mw ...ModelMiddleware) *Model {
	a := action.Define(r, action.Config[*ModelRequest, *ModelResponse, *ModelResponseChunk]{
		Name:     name,
		Type:     registry.ActionTypeModel,
		Metadata: map[string]any{"subtype": "model"},
		Use:      mw,
	}, fn)
	return &Model{name: name, action: a}
}

// Name returns the model's registered name.
func (m *Model) Name() string { return m.name }

// Generate runs one model turn.
func (m *Model) Generate(ctx context.Context, req *ModelRequest, cb action.StreamCallback[*ModelResponseChunk]) (*ModelResponse, error) {
	return m.action.Run(ctx, req, cb)
}
