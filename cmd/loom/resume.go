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

var resumeCmd = &cobra.Command{
	Use:   "resume <workflow.yaml> <run-id>",
	Short: "Resume an interrupted run from its latest checkpoint",
	Long: `Loads the newest checkpoint for the run, verifies it matches the
workflow document, and executes the remaining nodes. Completed nodes are
not re-run.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runResume(cmd, args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	addEngineFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, path, runID string) error {
	g, err := loadGraph(path)
	if err != nil {
		return err
	}

	cpPath, _ := cmd.Flags().GetString("checkpoints")
	if cpPath == "" {
		return fmt.Errorf("resume requires --checkpoints")
	}
	cp, err := openStore(cpPath)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer cp.Close()

	opts, err := engineOptions(cmd, cp)
	if err != nil {
		return err
	}

	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx := loom.NewContext(base, loom.WithLogger(newLogger(cmd)))
	res, err := loom.Resume(ctx, g, cp, runID, opts...)
	if err != nil {
		return err
	}
	printResult(res)
	return res.Err()
}
