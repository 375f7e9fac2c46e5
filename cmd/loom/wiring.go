package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/checkpoint"
	"github.com/loomengine/loom/pkg/loom/exec"
	"github.com/loomengine/loom/pkg/loom/llm"
	"github.com/loomengine/loom/pkg/loom/sandbox"
	"github.com/loomengine/loom/pkg/loom/store"
)

// loadGraph reads a workflow document, detecting the format by extension.
func loadGraph(path string) (*loom.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loom.ParseJSON(data)
	case ".yaml", ".yml":
		return loom.ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported workflow extension %q (want .yaml, .yml, or .json)", filepath.Ext(path))
	}
}

// openStore resolves the --checkpoints flag: a .db/.sqlite path opens the
// SQLite store, anything else is treated as a snapshot directory.
func openStore(path string) (checkpoint.Store, error) {
	if path == "" {
		return nil, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return checkpoint.NewSQLiteStore(path)
	default:
		return checkpoint.NewFileStore(path)
	}
}

// parseInput decodes the --input flag. JSON documents become structured
// values; anything that does not parse is passed through as a string.
func parseInput(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("parallelism", loom.DefaultParallelism, "Maximum nodes executing at once")
	cmd.Flags().String("skip-policy", "any", "Join readiness policy: any or all")
	cmd.Flags().String("checkpoints", "", "Checkpoint store: a .db file or a snapshot directory")
	cmd.Flags().Duration("checkpoint-interval", loom.DefaultCheckpointInterval, "Periodic checkpoint interval")
	cmd.Flags().String("llm-binary", "claude", "Provider CLI binary for llm nodes")
	cmd.Flags().String("llm-model", "", "Default model when an llm node names none")
	cmd.Flags().Duration("llm-timeout", 5*time.Minute, "Per-call timeout for llm nodes")
	cmd.Flags().String("redis", "", "Redis address for storage nodes (empty: in-memory)")
}

// buildDeps wires the node executors from the command's flags.
func buildDeps(cmd *cobra.Command) exec.Deps {
	binary, _ := cmd.Flags().GetString("llm-binary")
	model, _ := cmd.Flags().GetString("llm-model")
	llmTimeout, _ := cmd.Flags().GetDuration("llm-timeout")
	redisAddr, _ := cmd.Flags().GetString("redis")

	var kv store.KeyValue = store.NewMemoryKV()
	if redisAddr != "" {
		kv = store.NewRedisKV(redisAddr, "", 0)
	}

	return exec.Deps{
		LLM: exec.LLMDeps{Client: llm.NewCLIClient(
			llm.WithBinary(binary),
			llm.WithModel(model),
			llm.WithTimeout(llmTimeout),
		)},
		Storage: exec.StorageDeps{KV: kv, Vector: store.NewMemoryVector()},
		Code:    exec.CodeDeps{Runners: sandbox.DefaultRunners()},
		Tools:   exec.NewToolRegistry(),
	}
}

// engineOptions translates the shared flags into run options.
func engineOptions(cmd *cobra.Command, cp checkpoint.Store) ([]loom.RunOption, error) {
	parallelism, _ := cmd.Flags().GetInt("parallelism")
	policy, _ := cmd.Flags().GetString("skip-policy")
	interval, _ := cmd.Flags().GetDuration("checkpoint-interval")

	opts := []loom.RunOption{
		loom.WithParallelism(parallelism),
		loom.WithExecutors(exec.DefaultRegistry(buildDeps(cmd))),
	}
	switch policy {
	case "any":
		opts = append(opts, loom.WithSkipPolicy(loom.SkipAny))
	case "all":
		opts = append(opts, loom.WithSkipPolicy(loom.SkipAll))
	default:
		return nil, fmt.Errorf("unknown skip policy %q (want any or all)", policy)
	}
	if cp != nil {
		opts = append(opts, loom.WithCheckpointStore(cp), loom.WithCheckpointInterval(interval))
	}
	return opts, nil
}

// printResult writes the run summary and sink outputs to stdout.
func printResult(res *loom.RunResult) {
	fmt.Printf("run %s: %s in %s\n", res.RunID, res.Outcome, res.Duration.Round(time.Millisecond))
	for _, fn := range res.FailedNodes {
		fmt.Printf("  failed %s (%s, %d attempts): %v\n", fn.NodeID, fn.Kind, fn.Attempts, fn.Err)
	}
	if len(res.Outputs) > 0 {
		doc, err := json.MarshalIndent(res.Outputs, "", "  ")
		if err == nil {
			fmt.Println(string(doc))
		}
	}
}
