package checkpoint

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory snapshot store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[int][]byte // runID -> generation -> marshaled snapshot
	closed bool
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int][]byte),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(snap *Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[snap.RunID] == nil {
		m.data[snap.RunID] = make(map[int][]byte)
	}
	m.data[snap.RunID][snap.Generation] = data
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID string, generation int) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	data, ok := m.data[runID][generation]
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(data)
}

// LoadLatest implements Store.
func (m *MemoryStore) LoadLatest(runID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	run, ok := m.data[runID]
	if !ok || len(run) == 0 {
		return nil, ErrNotFound
	}

	latest := -1
	for gen := range run {
		if gen > latest {
			latest = gen
		}
	}
	return Unmarshal(run[latest])
}

// List implements Store.
func (m *MemoryStore) List(runID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	run, ok := m.data[runID]
	if !ok {
		return nil, nil
	}

	infos := make([]Info, 0, len(run))
	for gen, data := range run {
		snap, err := Unmarshal(data)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			RunID:      runID,
			Generation: gen,
			Timestamp:  snap.Timestamp,
			Size:       int64(len(data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Generation > infos[j].Generation
	})
	return infos, nil
}

// Runs implements Store.
func (m *MemoryStore) Runs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	runs := make([]string, 0, len(m.data))
	for runID, revs := range m.data {
		if len(revs) > 0 {
			runs = append(runs, runID)
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// Prune implements Store.
func (m *MemoryStore) Prune(runID string, keep int) error {
	if keep < 1 {
		keep = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	run, ok := m.data[runID]
	if !ok || len(run) <= keep {
		return nil
	}

	gens := make([]int, 0, len(run))
	for gen := range run {
		gens = append(gens, gen)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(gens)))

	for _, gen := range gens[keep:] {
		delete(run, gen)
	}
	return nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of snapshots across all runs.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, run := range m.data {
		count += len(run)
	}
	return count
}
