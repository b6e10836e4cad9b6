package activities

import (
	"context"
	"errors"

	"medtutor/internal/models"
	"medtutor/internal/storage"
	"medtutor/internal/util"
)

// RunTopic ingests one topic in-process, in the same order as the topic
// workflow: hash, text, diagrams, videos. The returned run is also
// recorded. Status is skipped when the sources are unchanged and force is
// false.
func (a *Activities) RunTopic(ctx context.Context, item TopicItem, force bool) (models.IngestRun, error) {
	run := models.IngestRun{Topic: item.Key}
	dirIn := TopicDirInput{Topic: item.Key, Dir: item.Dir}
	fail := func(reason string) (models.IngestRun, error) {
		run.Status = storage.IngestStatusFailed
		run.FailReason = reason
		return run, a.RecordIngestRunActivity(ctx, RecordIngestRunInput{Run: run})
	}

	hash, err := a.HashTopicActivity(ctx, HashTopicInput{Topic: item.Key, Dir: item.Dir})
	if err != nil {
		return fail("hash sources: " + err.Error())
	}
	if hash.Unchanged && !force {
		run.Status = storage.IngestStatusSkipped
		return run, nil
	}
	run.Status = storage.IngestStatusRunning
	if err := a.RecordIngestRunActivity(ctx, RecordIngestRunInput{Run: run}); err != nil {
		return run, err
	}

	text, err := a.IngestTopicTextActivity(ctx, dirIn)
	if errors.Is(err, util.ErrNoExtractableText) {
		return fail("no extractable text found (OCR not enabled)")
	}
	if err != nil {
		return fail(err.Error())
	}
	run.Pages, run.Chunks = text.Pages, text.Chunks

	diagrams, err := a.IngestDiagramsActivity(ctx, dirIn)
	if err != nil {
		return fail(err.Error())
	}
	run.Diagrams = diagrams.Added

	videos, err := a.IngestVideosActivity(ctx, dirIn)
	if err != nil {
		return fail(err.Error())
	}
	run.Videos = videos.Added

	run.Status = storage.IngestStatusSucceeded
	run.SourceHash = hash.Hash
	return run, a.RecordIngestRunActivity(ctx, RecordIngestRunInput{Run: run})
}
