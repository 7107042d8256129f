// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

// Package registry is the central index of actions and plugins. Plugins
// register lazily: their Init runs at most once, on first lookup of one of
// their actions or on a full listing, never at registration time.
package registry
