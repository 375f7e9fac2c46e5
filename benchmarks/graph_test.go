package benchmarks

import (
	"fmt"
	"strings"
	"testing"

	"github.com/loomengine/loom/pkg/loom"
)

// noopExecutor does minimal work to measure framework overhead.
type noopExecutor struct{}

func (noopExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	return loom.Outputs{loom.DefaultOutputPort: inputs[loom.DefaultInputPort]}, nil
}

// buildLinearGraph builds a chain of n custom_code nodes.
func buildLinearGraph(n int) *loom.Graph {
	g := &loom.Graph{Name: "linear"}
	for i := 0; i < n; i++ {
		g.Nodes = append(g.Nodes, loom.Node{ID: fmt.Sprintf("n%d", i), Kind: loom.KindCustomCode})
		if i > 0 {
			g.Edges = append(g.Edges, loom.Edge{Source: fmt.Sprintf("n%d", i-1), Target: fmt.Sprintf("n%d", i)})
		}
	}
	return g
}

// buildFanGraph builds one source fanning out to n parallel nodes and
// joining at a sink.
func buildFanGraph(n int) *loom.Graph {
	g := &loom.Graph{Name: "fan"}
	g.Nodes = append(g.Nodes, loom.Node{ID: "src", Kind: loom.KindCustomCode})
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("w%d", i)
		g.Nodes = append(g.Nodes, loom.Node{ID: id, Kind: loom.KindCustomCode})
		g.Edges = append(g.Edges,
			loom.Edge{Source: "src", Target: id},
			loom.Edge{Source: id, Target: "sink"},
		)
	}
	g.Nodes = append(g.Nodes, loom.Node{ID: "sink", Kind: loom.KindCustomCode})
	return g
}

func mustCompile(b *testing.B, g *loom.Graph) *loom.CompiledGraph {
	b.Helper()
	cg, err := loom.Compile(g)
	if err != nil {
		b.Fatal(err)
	}
	return cg
}

// BenchmarkCompile measures validation plus adjacency precomputation.
func BenchmarkCompile(b *testing.B) {
	for _, n := range []int{5, 50, 500} {
		b.Run(fmt.Sprintf("linear_%d", n), func(b *testing.B) {
			g := buildLinearGraph(n)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := loom.Compile(g); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkGraphHash measures the canonical content hash.
func BenchmarkGraphHash(b *testing.B) {
	g := buildFanGraph(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Hash()
	}
}

// BenchmarkValidate measures structural validation alone.
func BenchmarkValidate(b *testing.B) {
	g := buildLinearGraph(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := loom.Validate(g); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParseYAML measures document ingestion.
func BenchmarkParseYAML(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("name: parsed\nnodes:\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "  - id: n%d\n    kind: custom_code\n", i)
	}
	sb.WriteString("edges:\n")
	for i := 1; i < 50; i++ {
		fmt.Fprintf(&sb, "  - source: n%d\n    target: n%d\n", i-1, i)
	}
	doc := []byte(sb.String())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := loom.ParseYAML(doc); err != nil {
			b.Fatal(err)
		}
	}
}
