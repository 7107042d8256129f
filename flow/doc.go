// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package flow layers durable, streamable orchestration on top of actions.
// A flow is an action whose body may be decomposed into named steps; step
// results are memoized per run, so a resumed run replays completed steps
// from cache instead of re-executing them.
package flow
