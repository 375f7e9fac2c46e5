package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints [run-id]",
	Short: "Inspect the checkpoint store",
	Long: `Without arguments, lists every run that has checkpoints. With a run id,
lists that run's snapshot revisions newest first.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCheckpoints(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	checkpointsCmd.Flags().String("checkpoints", "", "Checkpoint store: a .db file or a snapshot directory")
	checkpointsCmd.Flags().Int("prune", 0, "Keep only the newest N revisions of the run")
	checkpointsCmd.Flags().Bool("delete", false, "Delete all snapshots of the run")
	rootCmd.AddCommand(checkpointsCmd)
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
	cpPath, _ := cmd.Flags().GetString("checkpoints")
	if cpPath == "" {
		return fmt.Errorf("checkpoints requires --checkpoints")
	}
	cp, err := openStore(cpPath)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer cp.Close()

	if len(args) == 0 {
		runs, err := cp.Runs()
		if err != nil {
			return err
		}
		for _, id := range runs {
			fmt.Println(id)
		}
		return nil
	}

	runID := args[0]
	if del, _ := cmd.Flags().GetBool("delete"); del {
		return cp.DeleteRun(runID)
	}
	if keep, _ := cmd.Flags().GetInt("prune"); keep > 0 {
		if err := cp.Prune(runID, keep); err != nil {
			return err
		}
	}

	infos, err := cp.List(runID)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GENERATION\tTIMESTAMP\tSIZE")
	for _, info := range infos {
		fmt.Fprintf(w, "%d\t%s\t%d\n", info.Generation, info.Timestamp.Format("2006-01-02 15:04:05"), info.Size)
	}
	return w.Flush()
}
