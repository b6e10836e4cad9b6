package content

import (
	"medtutor/internal/models"
	"medtutor/internal/util"
)

// BuildRecords splits text into the three-level hierarchy for one topic:
// the topic name, fixed word-count pages and, within each page, fixed
// word-count chunks carrying their same-page neighbours as context.
func BuildRecords(topic, text string, pageSize, chunkSize int) []models.ContentRecord {
	out := []models.ContentRecord{{Content: topic, Topic: topic, Level: models.LevelTopic}}
	for p, page := range util.SplitWords(text, pageSize) {
		pageNum := p + 1
		out = append(out, models.ContentRecord{
			Content: page,
			Topic:   topic,
			Level:   models.LevelPage,
			PageNum: intPtr(pageNum),
		})
		chunks := util.SplitWords(page, chunkSize)
		for i, chunk := range chunks {
			out = append(out, models.ContentRecord{
				Content:  chunk,
				Topic:    topic,
				Level:    models.LevelChunk,
				PageNum:  intPtr(pageNum),
				ChunkNum: intPtr(i),
				Context:  siblings(chunks, i),
			})
		}
	}
	return out
}

func siblings(chunks []string, i int) *models.SiblingContext {
	ctx := &models.SiblingContext{}
	if i > 0 {
		ctx.PreviousChunk = chunks[i-1]
	}
	if i < len(chunks)-1 {
		ctx.NextChunk = chunks[i+1]
	}
	return ctx
}

// CountLevels reports how many page and chunk records a slice holds.
func CountLevels(records []models.ContentRecord) (pages, chunks int) {
	for _, r := range records {
		switch r.Level {
		case models.LevelPage:
			pages++
		case models.LevelChunk:
			chunks++
		}
	}
	return pages, chunks
}

func intPtr(v int) *int { return &v }
