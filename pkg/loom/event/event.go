// Package event provides pub/sub distribution of run and node lifecycle
// events to observers (UIs, loggers, external sinks).
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a lifecycle event.
type Type string

// Lifecycle event types.
const (
	TypeRunStarted   Type = "run.started"
	TypeRunCompleted Type = "run.completed"
	TypeRunCancelled Type = "run.cancelled"

	TypeNodeStarted   Type = "node.started"
	TypeNodeSucceeded Type = "node.succeeded"
	TypeNodeFailed    Type = "node.failed"
	TypeNodeSkipped   Type = "node.skipped"
	TypeNodeRetrying  Type = "node.retrying"

	TypeCheckpointSaved Type = "checkpoint.saved"
)

// Event is a single lifecycle occurrence. Events are immutable once
// published.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	RunID     string         `json:"run_id"`
	NodeID    string         `json:"node_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// New creates an event for a run.
func New(typ Type, runID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
	}
}

// NewNode creates an event for a node within a run.
func NewNode(typ Type, runID, nodeID string) Event {
	evt := New(typ, runID)
	evt.NodeID = nodeID
	return evt
}

// With attaches a data field, returning the event for chaining.
func (e Event) With(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}
