package workflows

import (
	"context"
	"errors"
	"testing"

	"medtutor/internal/activities"
	"medtutor/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerTopicActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "HashTopicActivity", func(context.Context, activities.HashTopicInput) (activities.HashTopicOutput, error) {
		return activities.HashTopicOutput{}, nil
	})
	registerActivityName(env, "RecordIngestRunActivity", func(context.Context, activities.RecordIngestRunInput) error { return nil })
	registerActivityName(env, "IngestTopicTextActivity", func(context.Context, activities.TopicDirInput) (activities.IngestTextOutput, error) {
		return activities.IngestTextOutput{}, nil
	})
	registerActivityName(env, "IngestDiagramsActivity", func(context.Context, activities.TopicDirInput) (activities.IngestDiagramsOutput, error) {
		return activities.IngestDiagramsOutput{}, nil
	})
	registerActivityName(env, "IngestVideosActivity", func(context.Context, activities.TopicDirInput) (activities.IngestVideosOutput, error) {
		return activities.IngestVideosOutput{}, nil
	})
}

func TestTopicIngestWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(TopicIngestWorkflow)
	registerTopicActivities(env)

	dirIn := activities.TopicDirInput{Topic: "tuberculosis", Dir: "/data/Tuberculosis"}
	var final models.IngestRun
	env.OnActivity("HashTopicActivity", mock.Anything, activities.HashTopicInput{Topic: "tuberculosis", Dir: "/data/Tuberculosis"}).Return(activities.HashTopicOutput{Hash: "h1"}, nil)
	env.OnActivity("IngestTopicTextActivity", mock.Anything, dirIn).Return(activities.IngestTextOutput{Pages: 3, Chunks: 15}, nil)
	env.OnActivity("IngestDiagramsActivity", mock.Anything, dirIn).Return(activities.IngestDiagramsOutput{Added: 4}, nil)
	env.OnActivity("IngestVideosActivity", mock.Anything, dirIn).Return(activities.IngestVideosOutput{Added: 2}, nil)
	env.OnActivity("RecordIngestRunActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordIngestRunInput) error {
		final = in.Run
		return nil
	})

	env.ExecuteWorkflow(TopicIngestWorkflow, TopicIngestInput{Topic: "tuberculosis", Dir: "/data/Tuberculosis"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "succeeded", out)
	require.Equal(t, models.IngestRun{Topic: "tuberculosis", Status: "succeeded", SourceHash: "h1", Pages: 3, Chunks: 15, Diagrams: 4, Videos: 2}, final)
}

func TestTopicIngestWorkflowSkipsUnchanged(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(TopicIngestWorkflow)
	registerTopicActivities(env)

	env.OnActivity("HashTopicActivity", mock.Anything, mock.Anything).Return(activities.HashTopicOutput{Hash: "h1", Unchanged: true}, nil)

	env.ExecuteWorkflow(TopicIngestWorkflow, TopicIngestInput{Topic: "tuberculosis", Dir: "/d"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "skipped", out)
	env.AssertNotCalled(t, "IngestTopicTextActivity", mock.Anything, mock.Anything)
}

func TestTopicIngestWorkflowNoTextFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(TopicIngestWorkflow)
	registerTopicActivities(env)

	var reasons []string
	env.OnActivity("HashTopicActivity", mock.Anything, mock.Anything).Return(activities.HashTopicOutput{Hash: "h1"}, nil)
	env.OnActivity("RecordIngestRunActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.RecordIngestRunInput) error {
		reasons = append(reasons, in.Run.Status+":"+in.Run.FailReason)
		return nil
	})
	env.OnActivity("IngestTopicTextActivity", mock.Anything, mock.Anything).Return(activities.IngestTextOutput{}, errors.New("no extractable text found in PDF"))

	env.ExecuteWorkflow(TopicIngestWorkflow, TopicIngestInput{Topic: "tuberculosis", Dir: "/d", Force: true})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
	require.Equal(t, []string{"running:", "failed:no extractable text found (OCR not enabled)"}, reasons)
}

func TestCatalogIngestWorkflowIsBestEffort(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CatalogIngestWorkflow)
	env.RegisterWorkflow(TopicIngestWorkflow)
	registerTopicActivities(env)
	registerActivityName(env, "ListTopicsActivity", func(context.Context, activities.ListTopicsInput) (activities.ListTopicsOutput, error) {
		return activities.ListTopicsOutput{}, nil
	})
	registerActivityName(env, "WriteIngestSummaryActivity", func(context.Context, activities.WriteIngestSummaryInput) error { return nil })

	env.OnActivity("ListTopicsActivity", mock.Anything, mock.Anything).Return(activities.ListTopicsOutput{
		Topics: []activities.TopicItem{
			{Key: "tuberculosis", Dir: "/d/tb"},
			{Key: "turner_syndrome", Dir: "/d/ts"},
			{Key: "colorectal_cancer", Dir: "/d/cc"},
		},
		Missing: []string{"lumbar_disc_herniation"},
	}, nil)
	env.OnActivity("HashTopicActivity", mock.Anything, activities.HashTopicInput{Topic: "colorectal_cancer", Dir: "/d/cc"}).Return(activities.HashTopicOutput{Hash: "x", Unchanged: true}, nil)
	env.OnActivity("HashTopicActivity", mock.Anything, mock.Anything).Return(activities.HashTopicOutput{Hash: "h"}, nil)
	env.OnActivity("RecordIngestRunActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("IngestTopicTextActivity", mock.Anything, activities.TopicDirInput{Topic: "turner_syndrome", Dir: "/d/ts"}).Return(activities.IngestTextOutput{}, errors.New("embedding provider down"))
	env.OnActivity("IngestTopicTextActivity", mock.Anything, mock.Anything).Return(activities.IngestTextOutput{Pages: 1, Chunks: 5}, nil)
	env.OnActivity("IngestDiagramsActivity", mock.Anything, mock.Anything).Return(activities.IngestDiagramsOutput{}, nil)
	env.OnActivity("IngestVideosActivity", mock.Anything, mock.Anything).Return(activities.IngestVideosOutput{}, nil)

	var summary map[string]any
	env.OnActivity("WriteIngestSummaryActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.WriteIngestSummaryInput) error {
		summary = in.Summary
		return nil
	})

	env.ExecuteWorkflow(CatalogIngestWorkflow, CatalogIngestInput{RunID: "run1", MaxConcurrentChildren: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)

	val, err := env.QueryWorkflow(QueryGetProgress)
	require.NoError(t, err)
	var progress CatalogIngestProgress
	require.NoError(t, val.Get(&progress))
	require.Equal(t, 3, progress.Total)
	require.Equal(t, 3, progress.Done)
	require.Equal(t, 1, progress.Failed)
	require.Equal(t, 1, progress.Skipped)
	require.Equal(t, map[string]string{
		"tuberculosis":      "succeeded",
		"turner_syndrome":   "failed",
		"colorectal_cancer": "skipped",
	}, progress.PerTopic)
	require.Equal(t, []string{"lumbar_disc_herniation"}, progress.Missing)
	require.Equal(t, "run1", summary["run_id"])
}
