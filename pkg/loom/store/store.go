// Package store provides the key-value and vector backends storage nodes
// read and write.
package store

import (
	"context"
	"errors"
)

// KeyValue is a static storage backend.
// Implementations must be safe for concurrent use.
type KeyValue interface {
	// Put stores a value under key, overwriting any existing value.
	Put(ctx context.Context, key string, value any) error

	// Get retrieves the value for key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (any, error)

	// Delete removes a key. Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys, sorted.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources.
	Close() error
}

// Vector is a similarity-search backend.
// Implementations must be safe for concurrent use.
type Vector interface {
	// Add stores an embedding with its source text.
	// Overwrites any existing entry with the same id.
	Add(ctx context.Context, id string, embedding []float64, text string) error

	// Search returns the topK entries most similar to the query
	// embedding, best first.
	Search(ctx context.Context, query []float64, topK int) ([]Match, error)

	// Delete removes an entry. Returns nil if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources.
	Close() error
}

// Match is a similarity search hit.
type Match struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Sentinel errors for storage operations.
var (
	// ErrKeyNotFound indicates a missing key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDimensionMismatch indicates an embedding whose length differs
	// from the entries already stored.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
