package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current snapshot format version.
// Increment when making breaking changes to snapshot structure.
const Version = 1

// NodeState is the persisted state of a single node within a snapshot.
type NodeState struct {
	Status   string         `json:"status"`
	Outputs  map[string]any `json:"outputs,omitempty"`
	Attempts int            `json:"attempts,omitempty"`
	Error    string         `json:"error,omitempty"`

	// SkipReason records why a skipped node was skipped ("branch" or
	// "upstream"), so resume can tell inactive branches from casualties.
	SkipReason string `json:"skip_reason,omitempty"`

	// SelectedPorts records which output ports a decision activated, so
	// resume can rebuild edge activity without re-running the decision.
	SelectedPorts []string `json:"selected_ports,omitempty"`
}

// Snapshot is the persisted state of a whole run. It contains everything
// needed to resume the run against the same graph.
type Snapshot struct {
	// Metadata
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Workflow  string    `json:"workflow,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// GraphHash fingerprints the graph the snapshot was taken against.
	// A snapshot never resumes a different graph.
	GraphHash string `json:"graph_hash"`

	// Generation increments with every snapshot of the run, so stores can
	// order revisions and keep the latest.
	Generation int `json:"generation"`

	// Execution state
	Nodes map[string]NodeState `json:"nodes"`

	// Running lists nodes that were in flight when the snapshot was
	// taken. Their work is lost; resume schedules them again.
	Running []string `json:"running,omitempty"`

	// Inputs are the run-level inputs the run was started with.
	Inputs map[string]any `json:"inputs,omitempty"`
}

// New creates a snapshot shell for a run. Nodes are filled in by the caller.
func New(runID, graphHash string, generation int) *Snapshot {
	return &Snapshot{
		Version:    Version,
		RunID:      runID,
		GraphHash:  graphHash,
		Generation: generation,
		Timestamp:  time.Now().UTC(),
		Nodes:      make(map[string]NodeState),
	}
}

// Marshal serializes a snapshot to JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a snapshot from JSON.
// Returns ErrCorrupt for malformed data or an unknown format version.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrCorrupt, s.Version)
	}
	if s.RunID == "" {
		return nil, fmt.Errorf("%w: missing run_id", ErrCorrupt)
	}
	return &s, nil
}

// VerifyGraph checks the snapshot against a graph fingerprint.
// Returns ErrGraphMismatch when the graph has changed since the snapshot.
func (s *Snapshot) VerifyGraph(graphHash string) error {
	if s.GraphHash != graphHash {
		return fmt.Errorf("%w: snapshot taken against %.12s, graph is %.12s",
			ErrGraphMismatch, s.GraphHash, graphHash)
	}
	return nil
}
