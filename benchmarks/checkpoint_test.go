package benchmarks

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/checkpoint"
)

// buildSnapshot fills a snapshot with n succeeded nodes carrying realistic
// output payloads.
func buildSnapshot(runID string, generation, n int) *checkpoint.Snapshot {
	snap := checkpoint.New(runID, "0000000000000000000000000000000000000000000000000000000000000000", generation)
	for i := 0; i < n; i++ {
		snap.Nodes[fmt.Sprintf("n%d", i)] = checkpoint.NodeState{
			Status: "succeeded",
			Outputs: map[string]any{
				"output": map[string]any{
					"id":     fmt.Sprintf("doc-%d", i),
					"score":  0.87,
					"labels": []string{"alpha", "beta", "gamma"},
				},
			},
			SelectedPorts: []string{"output"},
		}
	}
	return snap
}

// BenchmarkMemoryStore_Save measures in-memory snapshot save.
func BenchmarkMemoryStore_Save(b *testing.B) {
	cp := checkpoint.NewMemoryStore()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cp.Save(buildSnapshot("run-1", i, 20)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryStore_LoadLatest measures in-memory snapshot load.
func BenchmarkMemoryStore_LoadLatest(b *testing.B) {
	cp := checkpoint.NewMemoryStore()
	if err := cp.Save(buildSnapshot("run-1", 1, 20)); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cp.LoadLatest("run-1"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSQLiteStore_Save measures SQLite snapshot save.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	cp, err := checkpoint.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer cp.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cp.Save(buildSnapshot("run-1", i, 20)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSQLiteStore_LoadLatest measures SQLite snapshot load.
func BenchmarkSQLiteStore_LoadLatest(b *testing.B) {
	cp, err := checkpoint.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer cp.Close()
	if err := cp.Save(buildSnapshot("run-1", 1, 20)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cp.LoadLatest("run-1"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRun_WithCheckpointing measures execution with checkpointing on.
func BenchmarkRun_WithCheckpointing(b *testing.B) {
	cp := checkpoint.NewMemoryStore()
	cg := mustCompile(b, buildLinearGraph(5))
	base := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx := loom.NewContext(base, loom.WithContextRunID(fmt.Sprintf("run-%d", i)))
		_, err := loom.RunCompiled(ctx, cg,
			loom.WithExecutor(loom.KindCustomCode, noopExecutor{}),
			loom.WithCheckpointStore(cp),
		)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRun_WithoutCheckpointing is the baseline for the above.
func BenchmarkRun_WithoutCheckpointing(b *testing.B) {
	benchRun(b, buildLinearGraph(5))
}
