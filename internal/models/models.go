package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one session turn. DiagramContext and MCQContext ride along so
// later turns can refer back to an artifact without fetching it again.
type Message struct {
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	DiagramContext *DiagramContext `json:"diagram_context,omitempty"`
	MCQContext     *MCQAttachment  `json:"mcq_context,omitempty"`
}

type Level int

const (
	LevelTopic Level = 1
	LevelPage  Level = 2
	LevelChunk Level = 3
)

type ContentType string

const (
	ContentText    ContentType = "text"
	ContentDiagram ContentType = "diagram"
	ContentVideo   ContentType = "video"
)

type SiblingContext struct {
	PreviousChunk string `json:"previous_chunk"`
	NextChunk     string `json:"next_chunk"`
}

// ContentRecord is a unit of the hierarchical store. PageNum is 1-based and
// ChunkNum is 0-based within its page; both are nil for level-1 records.
type ContentRecord struct {
	Content  string          `json:"content"`
	Topic    string          `json:"topic"`
	Level    Level           `json:"level"`
	PageNum  *int            `json:"page_num,omitempty"`
	ChunkNum *int            `json:"chunk_num,omitempty"`
	Context  *SiblingContext `json:"context,omitempty"`
}

type SearchHit struct {
	Content  string         `json:"content"`
	Topic    string         `json:"topic"`
	Context  SiblingContext `json:"context"`
	Score    float64        `json:"score"`
	PageNum  int            `json:"page_num"`
	ChunkNum int            `json:"chunk_num"`
}

type DiagramRecord struct {
	ImagePath   string `json:"image_path"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	DiagramType string `json:"diagram_type"`
}

type DiagramHit struct {
	DiagramRecord
	Score float64 `json:"score"`
}

type VideoRecord struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	Language    string `json:"language"`
}

type VideoHit struct {
	VideoRecord
	RelevanceScore float64 `json:"relevance_score"`
}

type TopicResolution struct {
	Success         bool    `json:"success"`
	Topic           string  `json:"topic,omitempty"`
	Confidence      float64 `json:"confidence"`
	ExplicitInvalid bool    `json:"explicit_invalid"`
	Message         string  `json:"message,omitempty"`
	Err             error   `json:"-"`
}

type Chat struct {
	ChatID       string    `json:"chatId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	LastActive   time.Time `json:"lastActive"`
	CreatedAt    time.Time `json:"createdAt"`
	CurrentTopic string    `json:"currentTopic,omitempty"`
	IsDeleted    bool      `json:"isDeleted"`
}

type StoredMessage struct {
	MessageID  string     `json:"messageId"`
	ChatID     string     `json:"chatId"`
	UserID     string     `json:"userId"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Attachment Attachment `json:"-"`
	Timestamp  time.Time  `json:"timestamp"`
}

type IngestRun struct {
	Topic      string    `json:"topic"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	SourceHash string    `json:"source_hash,omitempty"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	Diagrams   int       `json:"diagrams"`
	Videos     int       `json:"videos"`
	UpdatedAt  time.Time `json:"updated_at"`
}
