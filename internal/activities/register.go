package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListTopicsActivity)
	w.RegisterActivity(a.HashTopicActivity)
	w.RegisterActivity(a.IngestTopicTextActivity)
	w.RegisterActivity(a.IngestDiagramsActivity)
	w.RegisterActivity(a.IngestVideosActivity)
	w.RegisterActivity(a.RecordIngestRunActivity)
	w.RegisterActivity(a.WriteIngestSummaryActivity)
}
