package generate

import (
	"context"
	"encoding/json"

	"github.com/BaSui01/flowkit/types"
)

// ApprovedMetadataKey marks a tool call as approved for execution when the
// generation is resumed.
const ApprovedMetadataKey = "tool-approved"

// Interrupt records one tool call that was suspended pending approval. Ref
// ties the record back to the originating tool call ID, so resubmitting the
// same resume set is idempotent.
type Interrupt struct {
	Ref      string          `json:"ref"`
	ToolName string          `json:"toolName"`
	Input    json.RawMessage `json:"input,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// Approve marks the interrupt for execution on resume.
func (i *Interrupt) Approve() *Interrupt {
	if i.Metadata == nil {
		i.Metadata = make(map[string]any)
	}
	i.Metadata[ApprovedMetadataKey] = true
	return i
}

// Approved reports whether the interrupt carries approval metadata.
func (i *Interrupt) Approved() bool {
	v, _ := i.Metadata[ApprovedMetadataKey].(bool)
	return v
}

// ToolOutcome is the settled result of one tool call: either a response for
// the model (Result or Error) or an Interrupt suspending the generation.
type ToolOutcome struct {
	Result    json.RawMessage
	Error     string
	Interrupt *Interrupt
}

// ToolHandler settles a single tool call.
type ToolHandler func(ctx context.Context, call types.ToolCall) (*ToolOutcome, error)

// ToolMiddleware wraps a ToolHandler. Middlewares run in array order, the
// first one outermost.
type ToolMiddleware func(next ToolHandler) ToolHandler

// ChainToolMiddleware composes middlewares so that ms[0] runs outermost.
func ChainToolMiddleware(ms ...ToolMiddleware) ToolMiddleware {
	return func(h ToolHandler) ToolHandler {
		for i := len(ms) - 1; i >= 0; i-- {
			h = ms[i](h)
		}
		return h
	}
}

// ApproveTools gates tool execution behind explicit approval. Calls to a
// listed tool, and calls whose metadata carries tool-approved, pass through;
// every other call becomes an interrupt record instead of executing.
func ApproveTools(names ...string) ToolMiddleware {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return func(next ToolHandler) ToolHandler {
		return func(ctx context.Context, call types.ToolCall) (*ToolOutcome, error) {
			if approved, _ := call.Metadata[ApprovedMetadataKey].(bool); approved || allowed[call.Name] {
				return next(ctx, call)
			}
			return &ToolOutcome{Interrupt: &Interrupt{
				Ref:      call.ID,
				ToolName: call.Name,
				Input:    call.Arguments,
				Metadata: call.Metadata,
			}}, nil
		}
	}
}
