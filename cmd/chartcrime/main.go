package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ChartCrime/internal/di"
	"ChartCrime/internal/usecase"
	"ChartCrime/pkg/config"
	"ChartCrime/pkg/server"
)

var (
	configPath    string
	discoveryMode string
)

// rootCmd is the base command for the ChartCrime CLI
var rootCmd = &cobra.Command{
	Use:   "chartcrime",
	Short: "Rank daily economic series by their correlation with a benchmark",
	Long: `ChartCrime scans daily economic series, correlates each one with a
benchmark index over a recent window and curates a rotation of the most
entertaining spurious correlations for display.`,
	SilenceUsage: true,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Build the catalog of candidate daily series",
	Long: `Build the candidate catalog and save it to the storage directory.

Example usage:
  chartcrime discover                  # recently updated series
  chartcrime discover --mode=full-tree # walk the whole category tree`,
	RunE: withApp(func(ctx context.Context, app *server.App) error {
		return app.Discover(ctx, usecase.DiscoveryMode(discoveryMode))
	}),
}

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate the saved catalog against the benchmark",
	RunE: withApp(func(ctx context.Context, app *server.App) error {
		return app.Correlate(ctx)
	}),
}

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Curate the display rotation from saved results",
	RunE: withApp(func(ctx context.Context, app *server.App) error {
		return app.Curate(ctx)
	}),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Correlate and curate in one pass",
	RunE: withApp(func(ctx context.Context, app *server.App) error {
		return app.RunPipeline(ctx)
	}),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rotation API and run the pipeline on a schedule",
	RunE: withApp(func(ctx context.Context, app *server.App) error {
		return app.Serve(ctx)
	}),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML configuration file (defaults and environment when empty)")

	discoverCmd.Flags().StringVar(&discoveryMode, "mode", "", "Discovery mode: fast or full-tree (default from config)")

	rootCmd.AddCommand(discoverCmd, correlateCmd, curateCmd, runCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the application and runs fn with it.
func withApp(fn func(ctx context.Context, app *server.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return err
		}
		if discoveryMode == "" {
			discoveryMode = cfg.Discovery.Mode
		}

		app, cleanup, err := di.InitializeApp(cfg)
		if err != nil {
			return fmt.Errorf("app initialization failed: %w", err)
		}
		defer cleanup()

		return fn(cmd.Context(), app)
	}
}
