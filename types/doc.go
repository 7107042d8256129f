// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package types provides the shared data model of the FlowKit framework.
//
// It is the lowest-level public package and depends on no other FlowKit
// package, so every layer (schema, registry, action, flow, generate) can
// import it without cycles. It contains:
//
//   - Status           — canonical status names with HTTP mappings
//   - Error            — structured, wire-serializable framework error
//   - Message, ToolCall, ToolResult — conversation and tool-call records
package types
