package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/evodex/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize evodex configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the gateway address and traversal depth, then writes a .evodex.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
