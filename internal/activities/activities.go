package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"medtutor/internal/config"
	"medtutor/internal/content"
	"medtutor/internal/ingest"
	"medtutor/internal/models"
	"medtutor/internal/topics"
	"medtutor/internal/util"

	"go.temporal.io/sdk/temporal"
)

// RunStore persists per-topic ingestion status. IngestRunRepo implements it.
type RunStore interface {
	Upsert(ctx context.Context, run models.IngestRun) error
	SourceHash(ctx context.Context, topic string) (string, error)
}

type Activities struct {
	cfg     config.Config
	catalog *topics.Catalog
	store   *content.Store
	runs    RunStore
	logger  *slog.Logger
}

// New wires ingestion activities. runs may be nil, in which case status is
// only logged and every topic is treated as changed.
func New(cfg config.Config, catalog *topics.Catalog, store *content.Store, runs RunStore, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{cfg: cfg, catalog: catalog, store: store, runs: runs, logger: logger}
}

func (a *Activities) ListTopicsActivity(ctx context.Context, in ListTopicsInput) (ListTopicsOutput, error) {
	_ = ctx
	selected := a.catalog.All()
	if len(in.Topics) > 0 {
		selected = selected[:0]
		for _, key := range in.Topics {
			t, ok := a.catalog.Get(key)
			if !ok {
				return ListTopicsOutput{}, fmt.Errorf("unknown topic %q", key)
			}
			selected = append(selected, t)
		}
	}
	out := ListTopicsOutput{Topics: make([]TopicItem, 0, len(selected))}
	for _, t := range selected {
		dir := ingest.TopicDir(a.cfg.DataRoot, t)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			out.Missing = append(out.Missing, t.Key)
			continue
		}
		out.Topics = append(out.Topics, TopicItem{Key: t.Key, Dir: dir})
	}
	return out, nil
}

func (a *Activities) HashTopicActivity(ctx context.Context, in HashTopicInput) (HashTopicOutput, error) {
	hash, err := ingest.HashSources(in.Dir)
	if err != nil {
		return HashTopicOutput{}, err
	}
	out := HashTopicOutput{Hash: hash}
	if a.runs != nil {
		prev, err := a.runs.SourceHash(ctx, in.Topic)
		if err != nil {
			return HashTopicOutput{}, err
		}
		out.Unchanged = prev != "" && prev == hash
	}
	return out, nil
}

// IngestTopicTextActivity extracts the topic PDFs and indexes the text. Any
// embedding failure aborts the topic.
func (a *Activities) IngestTopicTextActivity(ctx context.Context, in TopicDirInput) (IngestTextOutput, error) {
	text, err := ingest.ExtractTopicText(in.Dir)
	if errors.Is(err, util.ErrNoExtractableText) {
		return IngestTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "NoExtractableText", err)
	}
	if err != nil {
		return IngestTextOutput{}, err
	}
	stats, err := a.store.IngestTopic(ctx, in.Topic, text)
	if err != nil {
		return IngestTextOutput{}, err
	}
	a.logger.Info("topic text indexed", "topic", in.Topic, "pages", stats.Pages, "chunks", stats.Chunks)
	return IngestTextOutput{Pages: stats.Pages, Chunks: stats.Chunks}, nil
}

// IngestDiagramsActivity indexes each described diagram; one failing
// diagram does not stop the rest.
func (a *Activities) IngestDiagramsActivity(ctx context.Context, in TopicDirInput) (IngestDiagramsOutput, error) {
	records, skipped, err := ingest.ListDiagrams(in.Dir, in.Topic)
	if err != nil {
		return IngestDiagramsOutput{}, err
	}
	out := IngestDiagramsOutput{Skipped: skipped}
	for _, d := range records {
		if err := a.store.AddDiagram(ctx, d); err != nil {
			a.logger.Error("add diagram failed", "topic", in.Topic, "image", d.ImagePath, "err", err)
			out.Failed++
			continue
		}
		out.Added++
	}
	return out, nil
}

func (a *Activities) IngestVideosActivity(ctx context.Context, in TopicDirInput) (IngestVideosOutput, error) {
	videos, err := ingest.LoadVideos(in.Dir, in.Topic)
	if err != nil {
		return IngestVideosOutput{}, err
	}
	var out IngestVideosOutput
	for _, v := range videos {
		if err := a.store.AddVideo(ctx, v); err != nil {
			a.logger.Error("add video failed", "topic", in.Topic, "url", v.URL, "err", err)
			out.Failed++
			continue
		}
		out.Added++
	}
	return out, nil
}

func (a *Activities) RecordIngestRunActivity(ctx context.Context, in RecordIngestRunInput) error {
	a.logger.Info("ingest run", "topic", in.Run.Topic, "status", in.Run.Status, "reason", in.Run.FailReason)
	if a.runs == nil {
		return nil
	}
	return a.runs.Upsert(ctx, in.Run)
}

func (a *Activities) WriteIngestSummaryActivity(ctx context.Context, in WriteIngestSummaryInput) error {
	_ = ctx
	return util.WriteJSONAtomic(filepath.Join(a.cfg.DataOutRoot, "ingest", in.RunID, "summary.json"), in.Summary)
}
