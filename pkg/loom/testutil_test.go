package loom

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loomengine/loom/pkg/loom/config"
)

// testCtx creates a context with a short timeout so a wedged coordinator
// fails the test instead of hanging it.
func testCtx(t *testing.T) Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return NewContext(ctx, WithContextRunID("test-run"))
}

// node builds a custom-kind test node.
func node(id string, params map[string]any) Node {
	return Node{ID: id, Kind: KindCustomCode, Parameters: config.New(params)}
}

// edge builds an edge on default ports.
func edge(source, target string) Edge {
	return Edge{Source: source, Target: target}
}

// portEdge builds an edge from a named source port.
func portEdge(source, port, target string) Edge {
	return Edge{Source: source, SourcePort: port, Target: target}
}

// tracker records execution order across goroutines.
type tracker struct {
	mu    sync.Mutex
	order []string
}

func (tr *tracker) add(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.order = append(tr.order, id)
}

func (tr *tracker) ids() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.order...)
}

func (tr *tracker) index(id string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, got := range tr.order {
		if got == id {
			return i
		}
	}
	return -1
}

// trackingExecutor records which nodes ran and passes inputs through.
func trackingExecutor(tr *tracker) Executor {
	return ExecutorFunc(func(ctx Context, n Node, inputs map[string]any) (Outputs, error) {
		tr.add(n.ID)
		var v any = n.ID
		if in, ok := inputs[DefaultInputPort]; ok {
			v = in
		}
		return Outputs{DefaultOutputPort: v}, nil
	})
}

// failingExecutor fails the named node and passes everything else through.
func failingExecutor(tr *tracker, failID string, err error) Executor {
	passthrough := trackingExecutor(tr)
	return ExecutorFunc(func(ctx Context, n Node, inputs map[string]any) (Outputs, error) {
		if n.ID == failID {
			tr.add(n.ID)
			return nil, err
		}
		return passthrough.Execute(ctx, n, inputs)
	})
}
