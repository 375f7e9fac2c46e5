package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loomengine/loom/pkg/loom"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Execute a workflow",
	Long: `Executes the workflow and prints the sink outputs as JSON. The first
interrupt cancels the run gracefully; in-flight nodes are drained and the
last checkpoint is kept so the run can be resumed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRun(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	addEngineFlags(runCmd)
	runCmd.Flags().String("input", "", "Workflow input, JSON or a plain string")
	runCmd.Flags().String("run-id", "", "Run identifier (default: a fresh UUID)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, path string) error {
	g, err := loadGraph(path)
	if err != nil {
		return err
	}

	cpPath, _ := cmd.Flags().GetString("checkpoints")
	cp, err := openStore(cpPath)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	if cp != nil {
		defer cp.Close()
	}

	opts, err := engineOptions(cmd, cp)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("input") {
		raw, _ := cmd.Flags().GetString("input")
		opts = append(opts, loom.WithInput(parseInput(raw)))
	}

	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctxOpts := []loom.ContextOption{loom.WithLogger(newLogger(cmd))}
	if runID, _ := cmd.Flags().GetString("run-id"); runID != "" {
		ctxOpts = append(ctxOpts, loom.WithContextRunID(runID))
	}

	res, err := loom.Run(loom.NewContext(base, ctxOpts...), g, opts...)
	if err != nil {
		return err
	}
	printResult(res)
	return res.Err()
}
