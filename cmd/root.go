package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/evodex/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "evodex",
	Short: "Explore species evolution chains through a species gateway",
	Long: `evodex resolves what a species evolves from and into by walking a
species gateway in both directions, up to eight generations deep. Large,
densely cross-linked families are collapsed to their direct neighbours
until you expand them.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
