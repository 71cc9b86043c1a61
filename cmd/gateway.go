package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/evodex/internal/db"
	"github.com/ziadkadry99/evodex/internal/server"
	"github.com/ziadkadry99/evodex/internal/species"
)

var (
	gatewayPort   int
	gatewayDBPath string
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve a local species gateway from the seeded catalogue",
	Long: `Starts an HTTP server exposing the species gateway endpoints
(/species/search, /species/images, /evolution/options/{name},
/evolution/reverse/{name}) backed by the local SQLite catalogue. Populate
it with ` + "`evodex seed`" + ` first.`,
	RunE: runGateway,
}

func init() {
	gatewayCmd.Flags().IntVar(&gatewayPort, "port", 0, "port to listen on (default from config)")
	gatewayCmd.Flags().StringVar(&gatewayDBPath, "db", "", "catalogue database path (default from config)")
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	port := cfg.Server.Port
	if gatewayPort != 0 {
		port = gatewayPort
	}
	dbPath := cfg.Server.DBPath
	if gatewayDBPath != "" {
		dbPath = gatewayDBPath
	}

	database, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	store := species.NewStore(database)
	counts, err := store.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting species: %w", err)
	}

	srv := server.New(server.Config{
		Port:     port,
		AllowAll: cfg.Server.AllowAllOrigins,
	}, database, nil, logger.Named("server"))
	species.RegisterRoutes(srv.Router(), store)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("evodex gateway starting",
		zap.String("version", Version),
		zap.Int("port", port),
		zap.String("database", dbPath),
		zap.Int("species", counts.Species),
		zap.Int("evolutions", counts.Evolutions),
	)
	if counts.Species == 0 {
		logger.Warn("catalogue is empty; run `evodex seed` to load species")
	}

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
