// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package generate drives multi-turn model execution: it feeds conversation
// history to a model action, executes requested tool calls, and loops until
// the model stops. Tools may be gated behind human approval, in which case
// generation pauses with an interrupted response that can later be resumed.
package generate
