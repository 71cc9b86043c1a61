package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/evodex/internal/evolution"
)

var treeCmd = &cobra.Command{
	Use:   "tree [species]",
	Short: "Print the evolution tree of a species",
	Long: `Resolves what a species evolves from and into, up to eight generations in
each direction. Families tagged as large are collapsed to direct neighbours
unless --expand is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().Bool("expand", false, "show the full depth for large families")
	treeCmd.Flags().Bool("json", false, "output the tree as JSON")
	treeCmd.Flags().Bool("levels", false, "print one generation per line")
	treeCmd.MarkFlagsMutuallyExclusive("json", "levels")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	expand, _ := cmd.Flags().GetBool("expand")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	levels, _ := cmd.Flags().GetBool("levels")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s := newStack(cfg, logger)

	var expanded evolution.ExpansionSet
	if expand {
		expanded = evolution.NewExpansionSet(args[0])
	}
	res, err := s.builder.Build(cmd.Context(), args[0], expanded)
	if err != nil {
		return fmt.Errorf("building evolution tree: %w", err)
	}

	switch {
	case jsonOutput:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case levels:
		return evolution.WriteLevels(os.Stdout, evolution.Flatten(res))
	default:
		return evolution.WriteTree(os.Stdout, res)
	}
}
