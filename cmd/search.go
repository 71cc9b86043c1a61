package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search species by name",
	Long:  `Searches the species gateway by name fragment. Wildcards ("Agu*", "Pi?hu") are matched by the gateway.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

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
	ctrl := s.controller(cfg)

	refs, err := ctrl.Search(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("searching species: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	}

	if len(refs) == 0 {
		fmt.Printf("No species match %q.\n", args[0])
		return nil
	}
	for _, r := range refs {
		fmt.Println(r.Name)
	}
	return nil
}
