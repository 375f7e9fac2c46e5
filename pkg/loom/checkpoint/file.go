package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FileStore persists snapshots as JSON files, one file per revision:
//
//	<root>/<runID>/00000003.json
//
// Writes go to a temp file in the same directory and are renamed into
// place, so a crash mid-write never leaves a partial revision behind.
type FileStore struct {
	root   string
	mu     sync.RWMutex
	closed bool
}

const snapshotExt = ".json"

// NewFileStore creates a file-backed snapshot store rooted at dir,
// creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Save implements Store.
func (f *FileStore) Save(snap *Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}

	runDir, err := f.runDir(snap.RunID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	final := filepath.Join(runDir, revisionName(snap.Generation))
	tmp, err := os.CreateTemp(runDir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (f *FileStore) Load(runID string, generation int) (*Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	runDir, err := f.runDir(runID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(runDir, revisionName(generation)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Unmarshal(data)
}

// LoadLatest implements Store.
func (f *FileStore) LoadLatest(runID string) (*Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	gens, runDir, err := f.generations(runID)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(runDir, revisionName(gens[0])))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Unmarshal(data)
}

// List implements Store.
func (f *FileStore) List(runID string) ([]Info, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	gens, runDir, err := f.generations(runID)
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(gens))
	for _, gen := range gens {
		path := filepath.Join(runDir, revisionName(gen))
		data, err := os.ReadFile(path)
		if err != nil {
			continue // revision pruned between listing and read
		}
		snap, err := Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("revision %s: %w", path, err)
		}
		infos = append(infos, Info{
			RunID:      runID,
			Generation: gen,
			Timestamp:  snap.Timestamp,
			Size:       int64(len(data)),
		})
	}
	return infos, nil
}

// Runs implements Store.
func (f *FileStore) Runs() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// Prune implements Store.
func (f *FileStore) Prune(runID string, keep int) error {
	if keep < 1 {
		keep = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}

	gens, runDir, err := f.generations(runID)
	if err != nil {
		return err
	}
	if len(gens) <= keep {
		return nil
	}

	for _, gen := range gens[keep:] {
		if err := os.Remove(filepath.Join(runDir, revisionName(gen))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune revision %d: %w", gen, err)
		}
	}
	return nil
}

// DeleteRun implements Store.
func (f *FileStore) DeleteRun(runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}

	runDir, err := f.runDir(runID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("delete run snapshots: %w", err)
	}
	return nil
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// generations lists a run's revisions, newest first.
// Holds at least a read lock when called.
func (f *FileStore) generations(runID string) ([]int, string, error) {
	runDir, err := f.runDir(runID)
	if err != nil {
		return nil, "", err
	}

	entries, err := os.ReadDir(runDir)
	if os.IsNotExist(err) {
		return nil, runDir, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read run dir: %w", err)
	}

	var gens []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) || strings.HasPrefix(name, ".") {
			continue
		}
		gen, err := strconv.Atoi(strings.TrimSuffix(name, snapshotExt))
		if err != nil {
			continue
		}
		gens = append(gens, gen)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(gens)))
	return gens, runDir, nil
}

func (f *FileStore) runDir(runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || strings.Contains(runID, "..") {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(f.root, runID), nil
}

func revisionName(generation int) string {
	return fmt.Sprintf("%08d%s", generation, snapshotExt)
}
