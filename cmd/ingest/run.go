package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"medtutor/internal/activities"
	"medtutor/internal/config"
	"medtutor/internal/models"
	"medtutor/internal/storage"
	"medtutor/internal/workflows"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

var (
	runForce  bool
	runDirect bool
)

var runCmd = &cobra.Command{
	Use:   "run [topic-key...]",
	Short: "Ingest all topics, or only the given ones",
	Long: `Starts the catalog ingestion workflow on the Temporal worker and waits
for it. With --direct the same steps run in this process instead.
Topics whose sources are unchanged since the last success are skipped
unless --force is given.`,
	RunE: runIngest,
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "re-ingest topics even when their sources are unchanged")
	runCmd.Flags().BoolVar(&runDirect, "direct", false, "run ingestion in-process without Temporal")
	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if runDirect {
		return runDirectIngest(ctx, cmd, args)
	}

	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return fmt.Errorf("dial temporal: %w", err)
	}
	defer c.Close()

	in := workflows.CatalogIngestInput{
		RunID:                 uuid.NewString(),
		Topics:                args,
		MaxConcurrentChildren: cfg.IngestMaxChildren,
		Force:                 runForce,
	}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflows.CatalogIngestWorkflowID,
		TaskQueue:                                cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.CatalogIngestWorkflow, in)
	if err != nil {
		return fmt.Errorf("start ingestion: %w", err)
	}
	cmd.Printf("Started ingestion run %s (workflow %s)\n", in.RunID, run.GetID())

	var result string
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	cmd.Printf("Ingestion %s.\n", result)
	return nil
}

func runDirectIngest(ctx context.Context, cmd *cobra.Command, keys []string) error {
	rt, a, err := openActivities(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	list, err := a.ListTopicsActivity(ctx, activities.ListTopicsInput{Topics: keys})
	if err != nil {
		return err
	}
	for _, key := range list.Missing {
		cmd.Printf("%-24s missing folder\n", key)
	}
	var failed int
	for _, item := range list.Topics {
		run, err := a.RunTopic(ctx, item, runForce)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", item.Key, err)
		}
		printRun(cmd, run)
		if run.Status == storage.IngestStatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d topics failed", failed, len(list.Topics))
	}
	return nil
}

func printRun(cmd *cobra.Command, run models.IngestRun) {
	if run.FailReason != "" {
		cmd.Printf("%-24s %-10s %s\n", run.Topic, run.Status, run.FailReason)
		return
	}
	cmd.Printf("%-24s %-10s pages=%d chunks=%d diagrams=%d videos=%d\n",
		run.Topic, run.Status, run.Pages, run.Chunks, run.Diagrams, run.Videos)
}
