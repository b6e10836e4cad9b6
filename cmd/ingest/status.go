package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last ingestion run of every topic",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	rt, _, err := openActivities(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	repo := rt.IngestRuns()
	if repo == nil {
		return errors.New("ingest run history requires the postgres chat store or pgvector index")
	}
	runs, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("No ingestion runs recorded.")
		return nil
	}
	for _, run := range runs {
		printRun(cmd, run)
		cmd.Printf("%-24s updated %s\n", "", run.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
