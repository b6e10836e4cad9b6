package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"medtutor/internal/activities"
	"medtutor/internal/ingest"

	"github.com/spf13/cobra"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-ingest topics when their source files change",
	Long: `Watches every topic folder and re-runs ingestion for a topic once its
PDFs, diagrams or video file stop changing for the debounce period.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a changed topic is ingested")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "ingest changed topics once before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, a, err := openActivities(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	w, err := ingest.NewWatcher(rt.Config.DataRoot, rt.Catalog, watchDebounce, rt.Logger)
	if err != nil {
		return err
	}
	defer w.Close()

	// Ingestion runs one topic at a time.
	var mu sync.Mutex
	ingestTopic := func(key string) {
		mu.Lock()
		defer mu.Unlock()
		t, ok := rt.Catalog.Get(key)
		if !ok {
			return
		}
		run, err := a.RunTopic(ctx, activities.TopicItem{Key: key, Dir: ingest.TopicDir(rt.Config.DataRoot, t)}, false)
		if err != nil {
			rt.Logger.Error("watch ingest failed", "topic", key, "err", err)
			return
		}
		printRun(cmd, run)
	}

	if watchInitial {
		list, err := a.ListTopicsActivity(ctx, activities.ListTopicsInput{})
		if err != nil {
			return err
		}
		for _, item := range list.Topics {
			ingestTopic(item.Key)
		}
	}

	cmd.Printf("Watching %s (debounce %s)\n", rt.Config.DataRoot, watchDebounce)
	if err := w.Run(ctx, ingestTopic); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
