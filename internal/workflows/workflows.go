package workflows

import (
	"strings"
	"time"

	"medtutor/internal/activities"
	"medtutor/internal/models"
	"medtutor/internal/storage"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetProgress    = "GetProgress"
	QueryGetTopicStatus = "GetTopicStatus"

	// CatalogIngestWorkflowID is fixed so only one catalog ingestion runs at a time.
	CatalogIngestWorkflowID = "catalog-ingest"

	statusSucceeded = storage.IngestStatusSucceeded
	statusFailed    = storage.IngestStatusFailed
	statusSkipped   = storage.IngestStatusSkipped
)

// CatalogIngestWorkflow ingests every selected topic as a child workflow,
// maxChildren at a time. A failing topic is recorded and the batch moves on.
func CatalogIngestWorkflow(ctx workflow.Context, input CatalogIngestInput) (string, error) {
	progress := CatalogIngestProgress{
		RunID:         input.RunID,
		PerTopic:      map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (CatalogIngestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	var listOut activities.ListTopicsOutput
	if err := workflow.ExecuteActivity(ctx, "ListTopicsActivity", activities.ListTopicsInput{Topics: input.Topics}).Get(ctx, &listOut); err != nil {
		return "", err
	}
	items := listOut.Topics
	progress.Total = len(items)
	progress.Missing = listOut.Missing
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 2
	}

	for i := 0; i < len(items); i += maxChildren {
		end := i + maxChildren
		if end > len(items) {
			end = len(items)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batch := items[i:end]
		for _, item := range batch {
			progress.PerTopic[item.Key] = "processing"
			workflowID := "topic-ingest-" + sanitizeID(input.RunID) + "-" + sanitizeID(item.Key)
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, TopicIngestWorkflow, TopicIngestInput{
				Topic: item.Key,
				Dir:   item.Dir,
				Force: input.Force,
			}))
			progress.ChildWorkflow[item.Key] = workflowID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			key := batch[idx].Key
			if err != nil {
				progress.Failed++
				progress.PerTopic[key] = statusFailed
				continue
			}
			switch childStatus {
			case statusFailed:
				progress.Failed++
			case statusSkipped:
				progress.Skipped++
			}
			progress.Done++
			progress.PerTopic[key] = childStatus
		}
	}
	_ = workflow.ExecuteActivity(ctx, "WriteIngestSummaryActivity", activities.WriteIngestSummaryInput{
		RunID: input.RunID,
		Summary: map[string]any{
			"run_id":           input.RunID,
			"total":            progress.Total,
			"done":             progress.Done,
			"failed":           progress.Failed,
			"skipped":          progress.Skipped,
			"missing":          progress.Missing,
			"per_topic_status": progress.PerTopic,
			"generated_at":     workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	return "completed", nil
}

// TopicIngestWorkflow indexes one topic folder: text, then diagrams, then
// videos. Unchanged sources are skipped unless Force is set.
func TopicIngestWorkflow(ctx workflow.Context, input TopicIngestInput) (string, error) {
	status := TopicStatus{
		Topic:       input.Topic,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetTopicStatus, func() (TopicStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	dirIn := activities.TopicDirInput{Topic: input.Topic, Dir: input.Dir}
	record := func(st, reason, hash string) {
		_ = workflow.ExecuteActivity(ctx, "RecordIngestRunActivity", activities.RecordIngestRunInput{Run: models.IngestRun{
			Topic:      input.Topic,
			Status:     st,
			FailReason: reason,
			SourceHash: hash,
			Pages:      status.Pages,
			Chunks:     status.Chunks,
			Diagrams:   status.Diagrams,
			Videos:     status.Videos,
		}}).Get(ctx, nil)
	}
	fail := func(reason string) (string, error) {
		status.Status = statusFailed
		status.FailReason = reason
		status.Steps[status.CurrentStep] = statusFailed
		record(statusFailed, reason, "")
		return status.Status, nil
	}

	status.CurrentStep = "hash_sources"
	status.Steps[status.CurrentStep] = "processing"
	var hashOut activities.HashTopicOutput
	if err := workflow.ExecuteActivity(ctx, "HashTopicActivity", activities.HashTopicInput{Topic: input.Topic, Dir: input.Dir}).Get(ctx, &hashOut); err != nil {
		return fail("hash sources: " + err.Error())
	}
	status.Steps[status.CurrentStep] = "done"
	if hashOut.Unchanged && !input.Force {
		status.CurrentStep = "done"
		status.Status = statusSkipped
		return status.Status, nil
	}
	record(storage.IngestStatusRunning, "", "")

	status.CurrentStep = "ingest_text"
	status.Steps[status.CurrentStep] = "processing"
	var textOut activities.IngestTextOutput
	if err := workflow.ExecuteActivity(ctx, "IngestTopicTextActivity", dirIn).Get(ctx, &textOut); err != nil {
		if isNoTextError(err) {
			return fail("no extractable text found (OCR not enabled)")
		}
		return fail(err.Error())
	}
	status.Pages, status.Chunks = textOut.Pages, textOut.Chunks
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "ingest_diagrams"
	status.Steps[status.CurrentStep] = "processing"
	var diagOut activities.IngestDiagramsOutput
	if err := workflow.ExecuteActivity(ctx, "IngestDiagramsActivity", dirIn).Get(ctx, &diagOut); err != nil {
		return fail(err.Error())
	}
	status.Diagrams = diagOut.Added
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "ingest_videos"
	status.Steps[status.CurrentStep] = "processing"
	var videoOut activities.IngestVideosOutput
	if err := workflow.ExecuteActivity(ctx, "IngestVideosActivity", dirIn).Get(ctx, &videoOut); err != nil {
		return fail(err.Error())
	}
	status.Videos = videoOut.Added
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "done"
	status.Status = statusSucceeded
	record(statusSucceeded, "", hashOut.Hash)
	return status.Status, nil
}

func isNoTextError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no extractable text")
}

func sanitizeID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	repl := strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-", ".", "-")
	return repl.Replace(s)
}
