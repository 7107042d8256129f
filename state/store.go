// Package state persists flow run snapshots so interrupted or crashed runs
// can be resumed with their completed steps intact.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/BaSui01/flowkit/types"
)

// ErrNotFound is returned by Load and Delete for an unknown run ID.
var ErrNotFound = errors.New("flow run not found")

// RunStatus is the lifecycle state of a flow run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusInterrupted RunStatus = "interrupted"
)

// FlowRun is a resumable snapshot of one flow execution. StepCache maps
// memoization keys ("stepName|occurrence") to cached step outputs.
type FlowRun struct {
	ID         string                     `json:"id"`
	FlowName   string                     `json:"flowName"`
	Status     RunStatus                  `json:"status"`
	Input      json.RawMessage            `json:"input,omitempty"`
	Output     json.RawMessage            `json:"output,omitempty"`
	Messages   []types.Message            `json:"messages,omitempty"`
	Interrupts []json.RawMessage          `json:"interrupts,omitempty"`
	StepCache  map[string]json.RawMessage `json:"stepCache,omitempty"`
	CreatedAt  time.Time                  `json:"createdAt"`
	UpdatedAt  time.Time                  `json:"updatedAt"`
}

// Store persists flow runs. Implementations must be safe for concurrent
// use; Save overwrites any existing snapshot with the same ID.
type Store interface {
	Save(ctx context.Context, run *FlowRun) error
	Load(ctx context.Context, id string) (*FlowRun, error)
	List(ctx context.Context, flowName string) ([]*FlowRun, error)
	Delete(ctx context.Context, id string) error
}
