package generate

import (
	"context"
	"maps"
	"slices"

	"github.com/BaSui01/flowkit/action"
	"github.com/BaSui01/flowkit/registry"
	"github.com/BaSui01/flowkit/types"
)

// DefaultMaxTurns bounds the model/tool loop when no explicit limit is set.
const DefaultMaxTurns = 5

type generateOptions struct {
	model      *Model
	prompt     string
	messages   []types.Message
	tools      []ToolRef
	config     map[string]any
	maxTurns   int
	toolMW     []ToolMiddleware
	resume     []*Interrupt
	middleware []ModelMiddleware
	cb         action.StreamCallback[*ModelResponseChunk]
}

// GenerateOption configures one Generate call.
type GenerateOption func(*generateOptions)

// WithModel selects the model. Required.
func WithModel(m *Model) GenerateOption {
	return func(o *generateOptions) { o.model = m }
}

// WithPrompt appends a user message built from text.
func WithPrompt(text string) GenerateOption {
	return func(o *generateOptions) { o.prompt = text }
}

// WithMessages seeds the conversation history.
func WithMessages(messages ...types.Message) GenerateOption {
	return func(o *generateOptions) { o.messages = messages }
}

// WithTools makes tools callable by the model.
func WithTools(tools ...ToolRef) GenerateOption {
	return func(o *generateOptions) { o.tools = tools }
}

// WithConfig passes provider-specific generation parameters through.
func WithConfig(config map[string]any) GenerateOption {
	return func(o *generateOptions) { o.config = config }
}

// WithMaxTurns caps the number of model turns.
func WithMaxTurns(n int) GenerateOption {
	return func(o *generateOptions) { o.maxTurns = n }
}

// WithToolMiddleware wraps tool execution. Middlewares run in array order;
// see ApproveTools for the approval gate.
func WithToolMiddleware(mw ...ToolMiddleware) GenerateOption {
	return func(o *generateOptions) { o.toolMW = append(o.toolMW, mw...) }
}

// WithResume continues an interrupted generation. Approved interrupts
// execute their tool call; the rest interrupt again. The message history of
// the interrupted response must be replayed via WithMessages.
func WithResume(interrupts ...*Interrupt) GenerateOption {
	return func(o *generateOptions) { o.resume = interrupts }
}

// WithMiddleware wraps the model for this call only, outside any middleware
// the model was defined with.
func WithMiddleware(mw ...ModelMiddleware) GenerateOption {
	return func(o *generateOptions) { o.middleware = mw }
}

// WithStreaming forwards model chunks to cb as they are produced.
func WithStreaming(cb action.StreamCallback[*ModelResponseChunk]) GenerateOption {
	return func(o *generateOptions) { o.cb = cb }
}

// Generate runs the model/tool loop to completion or interruption.
func Generate(ctx context.Context, r *registry.Registry, opts ...GenerateOption) (*ModelResponse, error) {
	o := generateOptions{maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == nil {
		return nil, types.NewError(types.StatusInvalidArgument, "generate requires a model")
	}
	if o.maxTurns <= 0 {
		o.maxTurns = DefaultMaxTurns
	}

	messages := slices.Clone(o.messages)
	if o.prompt != "" {
		messages = append(messages, types.NewUserMessage(o.prompt))
	}

	toolsByName := make(map[string]ToolRef, len(o.tools))
	toolDefs := make([]ToolDefinition, 0, len(o.tools))
	for _, tool := range o.tools {
		toolsByName[tool.Name()] = tool
		toolDefs = append(toolDefs, tool.Definition())
	}
	handler := ChainToolMiddleware(o.toolMW...)(executeTool(toolsByName))

	if len(o.resume) > 0 {
		resumed, interrupted, err := applyResume(ctx, messages, handler, o.resume)
		if err != nil {
			return nil, err
		}
		if interrupted != nil {
			return interrupted, nil
		}
		messages = resumed
	}

	call := action.ChainMiddleware(o.middleware...)(
		func(ctx context.Context, req *ModelRequest, cb action.StreamCallback[*ModelResponseChunk]) (*ModelResponse, error) {
			return o.model.Generate(ctx, req, cb)
		})

	for turn := 0; turn < o.maxTurns; turn++ {
		req := &ModelRequest{
			Messages: slices.Clone(messages),
			Tools:    toolDefs,
			Config:   o.config,
		}
		resp, err := call(ctx, req, o.cb)
		if err != nil {
			return nil, err
		}
		if resp.Message != nil {
			messages = append(messages, *resp.Message)
		}
		resp.History = slices.Clone(messages)

		calls := pendingToolCalls(resp.Message)
		if len(calls) == 0 {
			return resp, nil
		}

		var pending []*Interrupt
		for _, tc := range calls {
			outcome, err := handler(ctx, tc)
			if err != nil {
				return nil, err
			}
			if outcome.Interrupt != nil {
				pending = append(pending, outcome.Interrupt)
				continue
			}
			messages = append(messages, outcomeMessage(tc, outcome))
		}
		if len(pending) > 0 {
			resp.FinishReason = FinishReasonInterrupted
			resp.Interrupts = pending
			resp.History = slices.Clone(messages)
			return resp, nil
		}
	}

	return nil, types.NewError(types.StatusAborted,
		"generation did not finish within %d turns", o.maxTurns)
}

// applyResume settles the pending tool calls of an interrupted generation by
// replaying them through the tool pipeline, with the caller's resume metadata
// merged into each call. Approved calls execute and join the history as tool
// responses; calls the pipeline suspends again interrupt a second time.
func applyResume(ctx context.Context, messages []types.Message, handler ToolHandler, resume []*Interrupt) ([]types.Message, *ModelResponse, error) {
	if len(messages) == 0 {
		return nil, nil, types.NewError(types.StatusFailedPrecondition,
			"resume requires the interrupted message history")
	}
	last := messages[len(messages)-1]
	calls := pendingToolCalls(&last)
	if len(calls) == 0 {
		return nil, nil, types.NewError(types.StatusFailedPrecondition,
			"resume requires pending tool calls in the last message")
	}

	byRef := make(map[string]*Interrupt, len(resume))
	for _, it := range resume {
		byRef[it.Ref] = it
	}

	var pending []*Interrupt
	for _, tc := range calls {
		if it := byRef[tc.ID]; it != nil && len(it.Metadata) > 0 {
			merged := maps.Clone(tc.Metadata)
			if merged == nil {
				merged = make(map[string]any, len(it.Metadata))
			}
			maps.Copy(merged, it.Metadata)
			tc.Metadata = merged
		}
		outcome, err := handler(ctx, tc)
		if err != nil {
			return nil, nil, err
		}
		if outcome.Interrupt != nil {
			pending = append(pending, outcome.Interrupt)
			continue
		}
		messages = append(messages, outcomeMessage(tc, outcome))
	}

	if len(pending) > 0 {
		return nil, &ModelResponse{
			Message:      &last,
			FinishReason: FinishReasonInterrupted,
			Interrupts:   pending,
			History:      slices.Clone(messages),
		}, nil
	}
	return messages, nil, nil
}

// executeTool is the innermost tool handler: it resolves the named tool and
// runs it. Tool failures go back to the model as error responses so it can
// recover or rephrase; only an unknown tool fails the generation.
func executeTool(toolsByName map[string]ToolRef) ToolHandler {
	return func(ctx context.Context, tc types.ToolCall) (*ToolOutcome, error) {
		tool, ok := toolsByName[tc.Name]
		if !ok {
			return nil, types.NewError(types.StatusNotFound,
				"model requested unknown tool %q", tc.Name)
		}
		out, err := tool.Execute(ctx, tc.Arguments)
		if err != nil {
			return &ToolOutcome{Error: err.Error()}, nil
		}
		return &ToolOutcome{Result: out}, nil
	}
}

func outcomeMessage(tc types.ToolCall, outcome *ToolOutcome) types.Message {
	return types.ToolResult{
		ToolCallID: tc.ID,
		Name:       tc.Name,
		Result:     outcome.Result,
		Error:      outcome.Error,
	}.ToMessage()
}

func pendingToolCalls(msg *types.Message) []types.ToolCall {
	if msg == nil {
		return nil
	}
	return msg.ToolCalls
}
