package store

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryKV is an in-memory KeyValue backend. It is the default for
// workflows that declare static storage without an external backend.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMemoryKV creates an empty in-memory key-value store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]any)}
}

// Put implements KeyValue.
func (m *MemoryKV) Put(ctx context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Get implements KeyValue.
func (m *MemoryKV) Get(ctx context.Context, key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Delete implements KeyValue.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys implements KeyValue.
func (m *MemoryKV) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements KeyValue.
func (m *MemoryKV) Close() error {
	return nil
}

// MemoryVector is an in-memory Vector backend using brute-force cosine
// similarity. Fine for the collection sizes a single workflow handles.
type MemoryVector struct {
	mu      sync.RWMutex
	entries map[string]vectorEntry
	dim     int
}

type vectorEntry struct {
	embedding []float64
	text      string
}

// NewMemoryVector creates an empty in-memory vector store.
func NewMemoryVector() *MemoryVector {
	return &MemoryVector{entries: make(map[string]vectorEntry)}
}

// Add implements Vector.
func (m *MemoryVector) Add(ctx context.Context, id string, embedding []float64, text string) error {
	if len(embedding) == 0 {
		return ErrDimensionMismatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) > 0 && len(embedding) != m.dim {
		return ErrDimensionMismatch
	}
	m.dim = len(embedding)

	stored := make([]float64, len(embedding))
	copy(stored, embedding)
	m.entries[id] = vectorEntry{embedding: stored, text: text}
	return nil
}

// Search implements Vector.
func (m *MemoryVector) Search(ctx context.Context, query []float64, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 || topK < 1 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, ErrDimensionMismatch
	}

	matches := make([]Match, 0, len(m.entries))
	for id, entry := range m.entries {
		matches = append(matches, Match{
			ID:    id,
			Text:  entry.text,
			Score: cosine(query, entry.embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete implements Vector.
func (m *MemoryVector) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Close implements Vector.
func (m *MemoryVector) Close() error {
	return nil
}

// cosine computes cosine similarity between equal-length vectors.
// Zero vectors score 0.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
