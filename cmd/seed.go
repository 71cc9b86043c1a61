package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/evodex/internal/db"
	"github.com/ziadkadry99/evodex/internal/progress"
	"github.com/ziadkadry99/evodex/internal/species"
)

var seedDBPath string

var seedCmd = &cobra.Command{
	Use:   "seed [dataset.yml]",
	Short: "Load species and evolutions into the local catalogue",
	Long: `Reads a YAML dataset of species (name, image, family, evolves_to) and
upserts it into the SQLite catalogue served by ` + "`evodex gateway`" + `.
Seeding is idempotent.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDBPath, "db", "", "catalogue database path (default from config)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ds, err := species.LoadDataset(args[0])
	if err != nil {
		return err
	}

	dbPath := cfg.Server.DBPath
	if seedDBPath != "" {
		dbPath = seedDBPath
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	store := species.NewStore(database)
	stats, err := species.Import(cmd.Context(), store, ds, progress.NewReporter("Seeding species"))
	if err != nil {
		return fmt.Errorf("seeding %s: %w", args[0], err)
	}

	fmt.Printf("Seeded %d species and %d evolutions into %s\n", stats.Species, stats.Evolutions, database.Path())
	return nil
}
