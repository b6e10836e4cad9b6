package models

import (
	"encoding/json"
	"fmt"
)

type AttachmentKind string

const (
	AttachmentText    AttachmentKind = "text"
	AttachmentMCQ     AttachmentKind = "mcq"
	AttachmentDiagram AttachmentKind = "diagram"
	AttachmentVideo   AttachmentKind = "video"
)

// Attachment is a closed union: TextAttachment, MCQAttachment,
// DiagramAttachment and VideoAttachment are its only members.
type Attachment interface {
	Kind() AttachmentKind
	isAttachment()
}

// TextAttachment marks a plain message with no structured payload.
type TextAttachment struct{}

type MCQ struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type MCQAttachment struct {
	MCQ
	IsAnswered bool    `json:"isAnswered"`
	UserAnswer *string `json:"userAnswer"`
	IsCorrect  *bool   `json:"isCorrect"`
}

type DiagramContext struct {
	ImagePath   string `json:"image_path"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	DiagramType string `json:"diagram_type"`
}

type DiagramAttachment struct {
	DiagramContext
	RelevanceScore float64 `json:"relevance_score,omitempty"`
	ContextID      string  `json:"context_id,omitempty"`
}

type VideoRef struct {
	URL            string  `json:"url"`
	Description    string  `json:"description"`
	RelevanceScore float64 `json:"relevance_score"`
}

type VideoAttachment struct {
	English []VideoRef `json:"english"`
	Urdu    []VideoRef `json:"urdu"`
}

func (TextAttachment) Kind() AttachmentKind    { return AttachmentText }
func (MCQAttachment) Kind() AttachmentKind     { return AttachmentMCQ }
func (DiagramAttachment) Kind() AttachmentKind { return AttachmentDiagram }
func (VideoAttachment) Kind() AttachmentKind   { return AttachmentVideo }

func (TextAttachment) isAttachment()    {}
func (MCQAttachment) isAttachment()     {}
func (DiagramAttachment) isAttachment() {}
func (VideoAttachment) isAttachment()   {}

// EncodeAttachment returns the storage discriminator and JSON payload.
// A nil or text attachment encodes to an empty kind and nil data.
func EncodeAttachment(a Attachment) (AttachmentKind, []byte, error) {
	switch v := a.(type) {
	case nil, TextAttachment:
		return "", nil, nil
	case MCQAttachment, DiagramAttachment, VideoAttachment:
		b, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s attachment: %w", a.Kind(), err)
		}
		return a.Kind(), b, nil
	default:
		return "", nil, fmt.Errorf("unknown attachment type %T", a)
	}
}

func DecodeAttachment(kind AttachmentKind, data []byte) (Attachment, error) {
	switch kind {
	case "", AttachmentText:
		return TextAttachment{}, nil
	case AttachmentMCQ:
		var m MCQAttachment
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode mcq attachment: %w", err)
		}
		return m, nil
	case AttachmentDiagram:
		var d DiagramAttachment
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode diagram attachment: %w", err)
		}
		return d, nil
	case AttachmentVideo:
		var v VideoAttachment
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode video attachment: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown attachment kind %q", kind)
	}
}

// ToSessionMessage converts a stored message into a session turn, lifting
// MCQ and diagram payloads into carried context. Video payloads carry none.
func ToSessionMessage(m StoredMessage) Message {
	out := Message{Role: m.Role, Content: m.Content}
	switch a := m.Attachment.(type) {
	case MCQAttachment:
		mcq := a
		out.MCQContext = &mcq
	case DiagramAttachment:
		dc := a.DiagramContext
		out.DiagramContext = &dc
	case VideoAttachment, TextAttachment, nil:
	}
	return out
}
