package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/loom/store"
)

func TestMemoryVector_AddAndSearch(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()
	ctx := context.Background()

	require.NoError(t, v.Add(ctx, "x", []float64{1, 0, 0}, "x-axis"))
	require.NoError(t, v.Add(ctx, "y", []float64{0, 1, 0}, "y-axis"))
	require.NoError(t, v.Add(ctx, "xy", []float64{1, 1, 0}, "diagonal"))

	matches, err := v.Search(ctx, []float64{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Closest to the x axis first.
	assert.Equal(t, "x", matches[0].ID)
	assert.Equal(t, "x-axis", matches[0].Text)
	assert.Equal(t, "xy", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryVector_TopKBounds(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()
	ctx := context.Background()

	require.NoError(t, v.Add(ctx, "a", []float64{1, 0}, ""))

	// topK larger than the collection returns everything.
	matches, err := v.Search(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Non-positive topK returns nothing.
	matches, err = v.Search(ctx, []float64{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryVector_EmptySearch(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()

	matches, err := v.Search(context.Background(), []float64{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryVector_DimensionMismatch(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()
	ctx := context.Background()

	require.NoError(t, v.Add(ctx, "a", []float64{1, 0, 0}, ""))

	assert.ErrorIs(t, v.Add(ctx, "b", []float64{1, 0}, ""), store.ErrDimensionMismatch)

	_, err := v.Search(ctx, []float64{1, 0}, 1)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)

	assert.ErrorIs(t, v.Add(ctx, "c", nil, ""), store.ErrDimensionMismatch)
}

func TestMemoryVector_Overwrite(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()
	ctx := context.Background()

	require.NoError(t, v.Add(ctx, "a", []float64{1, 0}, "old"))
	require.NoError(t, v.Add(ctx, "a", []float64{0, 1}, "new"))

	matches, err := v.Search(ctx, []float64{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestMemoryVector_Delete(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()
	ctx := context.Background()

	require.NoError(t, v.Add(ctx, "a", []float64{1, 0}, ""))
	require.NoError(t, v.Delete(ctx, "a"))
	require.NoError(t, v.Delete(ctx, "a"))

	matches, err := v.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryVector_ZeroVectorScoresZero(t *testing.T) {
	v := store.NewMemoryVector()
	defer v.Close()
	ctx := context.Background()

	require.NoError(t, v.Add(ctx, "zero", []float64{0, 0}, ""))

	matches, err := v.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].Score)
}
