package exec

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/errs"
	"github.com/loomengine/loom/pkg/loom/store"
)

// StorageDeps are the backends for storage nodes.
type StorageDeps struct {
	KV     store.KeyValue
	Vector store.Vector
}

// StorageExecutor runs storage-kind nodes against a key-value or vector
// backend, selected by the storage_type parameter.
//
// Static storage (storage_type "static", the default) supports the
// operations set, get, delete, and list over key/value inputs. Vector
// storage (storage_type "vector") supports add, search, and delete over
// embedding/text inputs, with top_k bounding search results.
type StorageExecutor struct {
	kv  store.KeyValue
	vec store.Vector
}

// NewStorageExecutor creates a storage executor over the given backends.
// A nil backend disables its storage type.
func NewStorageExecutor(kv store.KeyValue, vec store.Vector) *StorageExecutor {
	return &StorageExecutor{kv: kv, vec: vec}
}

// Execute implements loom.Executor.
func (e *StorageExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	switch st := node.Parameters.String("storage_type", "static"); st {
	case "static":
		return e.static(ctx, node, inputs)
	case "vector":
		return e.vector(ctx, node, inputs)
	default:
		return nil, configError(node.ID, "unknown storage type %q", st)
	}
}

func (e *StorageExecutor) static(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	if e.kv == nil {
		return nil, configError(node.ID, "no key-value backend configured")
	}
	op := stringArg(node, inputs, "operation", "set")
	key := stringArg(node, inputs, "key", "")

	switch op {
	case "set":
		if key == "" {
			return nil, configError(node.ID, "key is required for set")
		}
		value, ok := inputs["value"]
		if !ok {
			value = inputs[loom.DefaultInputPort]
		}
		if err := e.kv.Put(ctx, key, value); err != nil {
			return nil, errs.Transient(fmt.Errorf("put %q: %w", key, err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: value}, nil

	case "get":
		if key == "" {
			return nil, configError(node.ID, "key is required for get")
		}
		value, err := e.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				return nil, errs.Permanent(fmt.Errorf("get %q: %w", key, err), node.ID)
			}
			return nil, errs.Transient(fmt.Errorf("get %q: %w", key, err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: value}, nil

	case "delete":
		if key == "" {
			return nil, configError(node.ID, "key is required for delete")
		}
		if err := e.kv.Delete(ctx, key); err != nil {
			return nil, errs.Transient(fmt.Errorf("delete %q: %w", key, err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: key}, nil

	case "list":
		keys, err := e.kv.Keys(ctx)
		if err != nil {
			return nil, errs.Transient(fmt.Errorf("list keys: %w", err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: keys}, nil

	default:
		return nil, configError(node.ID, "unknown operation %q for static storage", op)
	}
}

func (e *StorageExecutor) vector(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	if e.vec == nil {
		return nil, configError(node.ID, "no vector backend configured")
	}
	op := stringArg(node, inputs, "operation", "add")

	switch op {
	case "add":
		embedding, err := toFloat64Slice(inputs["embedding"])
		if err != nil {
			return nil, configError(node.ID, "embedding: %v", err)
		}
		text, _ := inputs["text"].(string)
		id := stringArg(node, inputs, "id", "")
		if id == "" {
			id = uuid.NewString()
		}
		if err := e.vec.Add(ctx, id, embedding, text); err != nil {
			return nil, errs.Permanent(fmt.Errorf("add %q: %w", id, err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: id}, nil

	case "search":
		query, err := toFloat64Slice(inputs["query_embedding"])
		if err != nil {
			return nil, configError(node.ID, "query_embedding: %v", err)
		}
		topK := node.Parameters.Int("top_k", 3)
		if v, ok := inputs["top_k"]; ok {
			if n, ok := v.(int); ok {
				topK = n
			} else if f, ok := v.(float64); ok {
				topK = int(f)
			}
		}
		matches, err := e.vec.Search(ctx, query, topK)
		if err != nil {
			return nil, errs.Permanent(fmt.Errorf("search: %w", err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: matches}, nil

	case "delete":
		id := stringArg(node, inputs, "id", "")
		if id == "" {
			return nil, configError(node.ID, "id is required for delete")
		}
		if err := e.vec.Delete(ctx, id); err != nil {
			return nil, errs.Permanent(fmt.Errorf("delete %q: %w", id, err), node.ID)
		}
		return loom.Outputs{loom.DefaultOutputPort: id}, nil

	default:
		return nil, configError(node.ID, "unknown operation %q for vector storage", op)
	}
}

// toFloat64Slice normalizes an embedding input: JSON decoding yields
// []any of float64, direct callers may pass []float64 or []float32.
func toFloat64Slice(v any) ([]float64, error) {
	switch vec := v.(type) {
	case []float64:
		return vec, nil
	case []float32:
		out := make([]float64, len(vec))
		for i, f := range vec {
			out[i] = float64(f)
		}
		return out, nil
	case []any:
		out := make([]float64, len(vec))
		for i, e := range vec {
			switch f := e.(type) {
			case float64:
				out[i] = f
			case int:
				out[i] = float64(f)
			default:
				return nil, fmt.Errorf("element %d is %T, not a number", i, e)
			}
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("missing embedding")
	default:
		return nil, fmt.Errorf("unsupported embedding type %T", v)
	}
}
