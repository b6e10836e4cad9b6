package compose

import (
	"fmt"
	"strings"

	"medtutor/internal/models"
	"medtutor/internal/providers"
)

const (
	ChatWindow       = 6
	MCQHistoryWindow = 2
	VideoWindow      = 3
	MCQChunkLimit    = 15
	ChatChunkLimit   = 3
)

const DefaultSystemPrompt = `You are a medical tutor helping students understand medical conditions.
Answer clearly and accurately, using the provided reference context when it is relevant.
If the context does not cover the question, say so instead of guessing.`

// Window returns the last n messages in order.
func Window(history []models.Message, n int) []models.Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Carried returns the diagram and MCQ context attached to the window. A
// later message overrides an earlier one.
func Carried(window []models.Message) (*models.DiagramContext, *models.MCQAttachment) {
	var (
		diagram *models.DiagramContext
		mcq     *models.MCQAttachment
	)
	for _, m := range window {
		if m.DiagramContext != nil {
			diagram = m.DiagramContext
		}
		if m.MCQContext != nil {
			mcq = m.MCQContext
		}
	}
	return diagram, mcq
}

// SystemGuidance extends the base prompt with carried artifacts and the
// retrieved reference block.
func SystemGuidance(base string, diagram *models.DiagramContext, mcq *models.MCQAttachment, reference string) string {
	var b strings.Builder
	if strings.TrimSpace(base) == "" {
		b.WriteString(DefaultSystemPrompt)
	} else {
		b.WriteString(strings.TrimSpace(base))
	}
	if diagram != nil {
		fmt.Fprintf(&b, "\n\nThere is a diagram being discussed that shows: %s", diagram.Description)
	}
	if mcq != nil {
		if mcq.IsAnswered {
			fmt.Fprintf(&b, "\n\nWe were discussing an MCQ question: %s", mcq.Question)
			fmt.Fprintf(&b, "\nThe correct answer was: %s", mcq.CorrectAnswer)
		} else {
			fmt.Fprintf(&b, "\n\nWe are discussing an MCQ question: %s", mcq.Question)
		}
	}
	if strings.TrimSpace(reference) != "" {
		b.WriteString("\n\nRelevant medical context:\n")
		b.WriteString(reference)
	}
	return b.String()
}

// FormatHits renders search hits in retrieval order.
func FormatHits(hits []models.SearchHit) string {
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "\nContent: %s\n", h.Content)
		if h.Context.PreviousChunk != "" {
			fmt.Fprintf(&b, "Previous context: %s\n", h.Context.PreviousChunk)
		}
		if h.Context.NextChunk != "" {
			fmt.Fprintf(&b, "Following context: %s\n", h.Context.NextChunk)
		}
		fmt.Fprintf(&b, "(Relevance: %.2f)\n", h.Score)
	}
	return b.String()
}

// ChatMessages turns a system prompt and session window into provider
// messages.
func ChatMessages(system string, window []models.Message) []providers.ChatMessage {
	out := make([]providers.ChatMessage, 0, len(window)+1)
	out = append(out, providers.ChatMessage{Role: string(models.RoleSystem), Content: system})
	for _, m := range window {
		out = append(out, providers.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// MCQPrompt combines topic context, the last two raw turns and the
// questions already asked in this session.
func MCQPrompt(reference string, history []models.Message, previous []models.MCQ) string {
	var recent strings.Builder
	recent.WriteString("\n\nLast 2 chat messages:\n")
	for _, m := range Window(history, MCQHistoryWindow) {
		fmt.Fprintf(&recent, "- %s\n", m.Content)
	}
	combined := fmt.Sprintf("Context for topic:\n%s\n\nRecent user text:\n%s", reference, recent.String())

	old := ""
	if len(previous) > 0 {
		var b strings.Builder
		b.WriteString("\nPreviously generated MCQs:\n")
		for _, q := range previous {
			fmt.Fprintf(&b, "- %s\n", q.Question)
		}
		old = b.String()
	}
	return fmt.Sprintf("Context:\n%s\n\n%s\n\nGenerate an MCQ based on this context.", combined, old)
}

func FormatMCQ(mcq models.MCQ) string {
	return fmt.Sprintf("**MCQ**\n\n**Question**: %s\n\n**Options**:\n%s\n\n**Answer**: %s\n**Explanation**: %s",
		mcq.Question, strings.Join(mcq.Options, "\n"), mcq.CorrectAnswer, mcq.Explanation)
}

// DiagramSource picks the text summarized for diagram lookup: the last
// assistant message, else the user query, else a placeholder.
func DiagramSource(history []models.Message, query string) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant && history[i].Content != "" {
			return history[i].Content
		}
	}
	if strings.TrimSpace(query) != "" {
		return query
	}
	return "diagram"
}

func DiagramQuery(summary, topic string) string {
	return summary + " " + topic
}

// DiagramMessages returns the system and assistant turns recorded when a
// diagram is shown. Both carry the same context.
func DiagramMessages(dc models.DiagramContext, topicName string) []models.Message {
	ctx := dc
	system := fmt.Sprintf("I am showing you a %s diagram related to %s. The diagram shows: %s\n\n"+
		"You can refer to this diagram in our conversation. When discussing it, be specific "+
		"about what the diagram shows and how it relates to the topic.", dc.DiagramType, topicName, dc.Description)
	return []models.Message{
		{Role: models.RoleSystem, Content: system, DiagramContext: &ctx},
		{Role: models.RoleAssistant, Content: fmt.Sprintf("Here's a relevant diagram about %s. What would you like to know about it?", topicName), DiagramContext: &ctx},
	}
}

// VideoQuery joins the last three turns into one search text.
func VideoQuery(history []models.Message) string {
	w := Window(history, VideoWindow)
	parts := make([]string, 0, len(w))
	for _, m := range w {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}

// SplitVideos partitions hits into English and Urdu buckets. Other
// languages are dropped.
func SplitVideos(hits []models.VideoHit) models.VideoAttachment {
	out := models.VideoAttachment{English: []models.VideoRef{}, Urdu: []models.VideoRef{}}
	for _, h := range hits {
		ref := models.VideoRef{URL: h.URL, Description: h.Description, RelevanceScore: h.RelevanceScore}
		switch strings.ToLower(h.Language) {
		case "english":
			out.English = append(out.English, ref)
		case "urdu":
			out.Urdu = append(out.Urdu, ref)
		}
	}
	return out
}
