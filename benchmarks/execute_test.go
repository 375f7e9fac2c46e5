package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/loomengine/loom/pkg/loom"
)

func benchRun(b *testing.B, g *loom.Graph, opts ...loom.RunOption) {
	b.Helper()
	cg := mustCompile(b, g)
	opts = append(opts, loom.WithExecutor(loom.KindCustomCode, noopExecutor{}))
	ctx := loom.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := loom.RunCompiled(ctx, cg, opts...)
		if err != nil {
			b.Fatal(err)
		}
		if !res.Succeeded() {
			b.Fatalf("run did not succeed: %s", res.Outcome)
		}
	}
}

// BenchmarkRun_Linear measures end-to-end scheduling overhead on chains.
func BenchmarkRun_Linear(b *testing.B) {
	for _, n := range []int{5, 10, 50, 100} {
		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			benchRun(b, buildLinearGraph(n))
		})
	}
}

// BenchmarkRun_Fan measures parallel dispatch across worker slots.
func BenchmarkRun_Fan(b *testing.B) {
	for _, par := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("parallelism_%d", par), func(b *testing.B) {
			benchRun(b, buildFanGraph(32), loom.WithParallelism(par))
		})
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		loom.NewContext(bg)
	}
}
