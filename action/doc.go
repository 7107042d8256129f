// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package action defines the typed, self-describing unit of execution.
// An action wraps a function with input/output schema validation, a
// middleware chain, span instrumentation and request metrics, and exposes a
// JSON boundary for remote callers.
package action
