// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package tracing instruments action and flow execution with OpenTelemetry
// spans. Every span carries the genkit:* attribute set (name, path, input,
// output, state) so downstream trace viewers can reconstruct nested
// executions without vendor-specific processing.
package tracing
