package activities

import "medtutor/internal/models"

type ListTopicsInput struct {
	Topics []string `json:"topics,omitempty"`
}

type TopicItem struct {
	Key string `json:"key"`
	Dir string `json:"dir"`
}

type ListTopicsOutput struct {
	Topics  []TopicItem `json:"topics"`
	Missing []string    `json:"missing,omitempty"`
}

type HashTopicInput struct {
	Topic string `json:"topic"`
	Dir   string `json:"dir"`
}

type HashTopicOutput struct {
	Hash      string `json:"hash"`
	Unchanged bool   `json:"unchanged"`
}

type TopicDirInput struct {
	Topic string `json:"topic"`
	Dir   string `json:"dir"`
}

type IngestTextOutput struct {
	Pages  int `json:"pages"`
	Chunks int `json:"chunks"`
}

type IngestDiagramsOutput struct {
	Added   int      `json:"added"`
	Skipped []string `json:"skipped,omitempty"`
	Failed  int      `json:"failed"`
}

type IngestVideosOutput struct {
	Added  int `json:"added"`
	Failed int `json:"failed"`
}

type RecordIngestRunInput struct {
	Run models.IngestRun `json:"run"`
}

type WriteIngestSummaryInput struct {
	RunID   string         `json:"run_id"`
	Summary map[string]any `json:"summary"`
}
