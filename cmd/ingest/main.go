package main

import (
	"context"
	"os"

	"medtutor/internal/activities"
	"medtutor/internal/bootstrap"
	"medtutor/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index topic folders into the medical content store",
	Long: `Extracts PDF text, diagrams and video links from each topic folder
under the data root and writes them to the configured vector index.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load(".env")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openActivities builds the in-process ingestion pipeline. The caller closes
// the returned runtime.
func openActivities(ctx context.Context) (*bootstrap.Runtime, *activities.Activities, error) {
	cfg := config.Load()
	rt, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	var runs activities.RunStore
	if r := rt.IngestRuns(); r != nil {
		runs = r
	}
	return rt, activities.New(cfg, rt.Catalog, rt.Content, runs, rt.Logger), nil
}
