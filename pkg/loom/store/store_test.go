package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/loom/store"
)

// kvContractTest runs contract tests against any KeyValue implementation.
func kvContractTest(t *testing.T, name string, factory func(t *testing.T) store.KeyValue) {
	ctx := context.Background()

	t.Run(name+"/Put_and_Get", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		require.NoError(t, kv.Put(ctx, "greeting", "hello"))

		value, err := kv.Get(ctx, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
	})

	t.Run(name+"/Get_NotFound", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		_, err := kv.Get(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)
	})

	t.Run(name+"/Put_Overwrite", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		require.NoError(t, kv.Put(ctx, "k", "first"))
		require.NoError(t, kv.Put(ctx, "k", "second"))

		value, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run(name+"/StructuredValues", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		require.NoError(t, kv.Put(ctx, "doc", map[string]any{
			"title": "notes",
			"count": float64(3),
		}))

		value, err := kv.Get(ctx, "doc")
		require.NoError(t, err)

		doc, ok := value.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "notes", doc["title"])
		assert.Equal(t, float64(3), doc["count"])
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		require.NoError(t, kv.Put(ctx, "k", "v"))
		require.NoError(t, kv.Delete(ctx, "k"))

		_, err := kv.Get(ctx, "k")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)

		// Deleting again is not an error.
		assert.NoError(t, kv.Delete(ctx, "k"))
	})

	t.Run(name+"/Keys_Sorted", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		require.NoError(t, kv.Put(ctx, "c", 1))
		require.NoError(t, kv.Put(ctx, "a", 2))
		require.NoError(t, kv.Put(ctx, "b", 3))
		require.NoError(t, kv.Delete(ctx, "b"))

		keys, err := kv.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, keys)
	})

	t.Run(name+"/Keys_Empty", func(t *testing.T) {
		kv := factory(t)
		defer kv.Close()

		keys, err := kv.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestMemoryKV(t *testing.T) {
	kvContractTest(t, "MemoryKV", func(t *testing.T) store.KeyValue {
		return store.NewMemoryKV()
	})
}

func TestRedisKV(t *testing.T) {
	kvContractTest(t, "RedisKV", func(t *testing.T) store.KeyValue {
		mr := miniredis.RunT(t)
		client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
		return store.NewRedisKVFromClient(client)
	})
}

func TestRedisKV_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	kv := store.NewRedisKVFromClient(client, store.WithPrefix("wf-7:"))
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, "state", "ready"))

	// Stored under the configured prefix.
	assert.True(t, mr.Exists("wf-7:state"))
}

func TestRedisKV_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	kv := store.NewRedisKVFromClient(client, store.WithTTL(time.Minute))
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, "session", "live"))

	// Value readable before expiry.
	_, err := kv.Get(ctx, "session")
	require.NoError(t, err)

	// After the TTL passes, the value and its index entry are gone.
	mr.FastForward(2 * time.Minute)

	_, err = kv.Get(ctx, "session")
	assert.ErrorIs(t, err, store.ErrKeyNotFound)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
