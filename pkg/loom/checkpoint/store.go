// Package checkpoint provides persistent run snapshots for crash recovery
// and resume.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists run snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot revision for a run.
	// Overwrites if a snapshot for (RunID, Generation) already exists.
	Save(snap *Snapshot) error

	// Load retrieves a specific snapshot revision.
	// Returns ErrNotFound if it doesn't exist.
	Load(runID string, generation int) (*Snapshot, error)

	// LoadLatest retrieves the newest snapshot for a run.
	// Returns ErrNotFound if the run has no snapshots.
	LoadLatest(runID string) (*Snapshot, error)

	// List returns all snapshot revisions for a run, newest first.
	// Returns empty slice (not error) if the run has none.
	List(runID string) ([]Info, error)

	// Runs returns the IDs of all runs with at least one snapshot.
	Runs() ([]string, error)

	// Prune removes all but the newest keep revisions of a run.
	// keep < 1 is treated as 1.
	Prune(runID string, keep int) error

	// DeleteRun removes all snapshots for a run.
	// Returns nil if the run has none.
	DeleteRun(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides revision metadata without loading the full snapshot.
type Info struct {
	RunID      string
	Generation int
	Timestamp  time.Time
	Size       int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")

	// ErrCorrupt indicates stored data that cannot be decoded.
	ErrCorrupt = errors.New("snapshot corrupt")

	// ErrGraphMismatch indicates a snapshot taken against a different
	// graph than the one being resumed.
	ErrGraphMismatch = errors.New("snapshot graph mismatch")
)
