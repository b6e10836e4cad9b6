package tutor

import (
	"errors"

	"medtutor/internal/models"
	"medtutor/internal/synth"
	"medtutor/internal/util"
)

const (
	msgProcessingError = "I encountered an error while processing your request. Please try again."
	msgNotConfigured   = "No language model provider is configured."
	msgNoTopic         = "Could not determine the topic of the conversation."
	msgNoHistory       = "No chat history found. Ask about a topic first."
	msgNoContext       = "No relevant context found for this topic."
	msgNoDiagram       = "No relevant diagram found."
	msgNoVideos        = "No relevant videos found."
	msgMCQParse        = "Failed to parse MCQ response."
	msgNoChatStore     = "Chat storage is not configured."
)

// ReplyType tags what a dispatched chat turn produced.
type ReplyType string

const (
	ReplyText    ReplyType = "text"
	ReplyMCQ     ReplyType = "mcq"
	ReplyDiagram ReplyType = "diagram"
	ReplyVideo   ReplyType = "video"
)

type ChatReply struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Topic     string `json:"topic,omitempty"`
	Message   string `json:"message,omitempty"`
}

type MCQResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Topic   string      `json:"topic,omitempty"`
	MCQ     *models.MCQ `json:"mcq,omitempty"`
}

type DiagramResult struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message,omitempty"`
	Topic   string                    `json:"topic,omitempty"`
	Diagram *models.DiagramAttachment `json:"diagram,omitempty"`
}

type VideoResult struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Topic   string                  `json:"topic,omitempty"`
	Videos  *models.VideoAttachment `json:"videos,omitempty"`
}

type HydrateResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Loaded    int    `json:"messages_loaded"`
}

// DispatchReply is the result of an intent-dispatched chat turn. Data holds
// the artifact for mcq, diagram and video replies.
type DispatchReply struct {
	Success   bool      `json:"success"`
	Response  string    `json:"response"`
	SessionID string    `json:"session_id"`
	Type      ReplyType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// failureMessage maps an operation error to the text shown to the user.
func failureMessage(err error) string {
	switch {
	case synth.IsNotConfigured(err):
		return msgNotConfigured
	case errors.Is(err, util.ErrNoHistory):
		return msgNoHistory
	case errors.Is(err, util.ErrNoTopic):
		return msgNoTopic
	case errors.Is(err, util.ErrNoContext):
		return msgNoContext
	case errors.Is(err, util.ErrMalformedOutput):
		return msgMCQParse
	default:
		return msgProcessingError
	}
}
