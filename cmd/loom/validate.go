package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomengine/loom/pkg/loom"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Check a workflow document for structural errors",
	Long:  `Parses the workflow and reports duplicate nodes, dangling edges, and cycles.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().Bool("layers", false, "Print the execution layers of a valid workflow")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, path string) error {
	g, err := loadGraph(path)
	if err != nil {
		return err
	}
	cg, err := loom.Compile(g)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d nodes, %d edges, hash %s\n", path, len(g.Nodes), len(g.Edges), cg.Hash()[:12])
	if layers, _ := cmd.Flags().GetBool("layers"); layers {
		for i, layer := range loom.TopologicalLayers(g) {
			fmt.Printf("  layer %d: %s\n", i, strings.Join(layer, ", "))
		}
	}
	return nil
}
