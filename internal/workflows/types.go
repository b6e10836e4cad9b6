package workflows

type CatalogIngestInput struct {
	RunID                 string   `json:"run_id"`
	Topics                []string `json:"topics,omitempty"`
	MaxConcurrentChildren int      `json:"max_concurrent_children"`
	Force                 bool     `json:"force"`
}

type TopicIngestInput struct {
	Topic string `json:"topic"`
	Dir   string `json:"dir"`
	Force bool   `json:"force"`
}

type TopicStatus struct {
	Topic       string            `json:"topic"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Steps       map[string]string `json:"steps"`
	Pages       int               `json:"pages"`
	Chunks      int               `json:"chunks"`
	Diagrams    int               `json:"diagrams"`
	Videos      int               `json:"videos"`
}

type CatalogIngestProgress struct {
	RunID         string            `json:"run_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	Skipped       int               `json:"skipped"`
	Missing       []string          `json:"missing,omitempty"`
	PerTopic      map[string]string `json:"per_topic_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
