package content

import (
	"fmt"
	"strings"
	"testing"

	"medtutor/internal/models"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestBuildRecordsReconstructsSource(t *testing.T) {
	src := words(57)
	records := BuildRecords("tuberculosis", src, 20, 6)

	if records[0].Level != models.LevelTopic || records[0].Content != "tuberculosis" {
		t.Fatalf("first record should be the topic, got %+v", records[0])
	}

	var pages []string
	chunksByPage := map[int][]string{}
	for _, r := range records[1:] {
		switch r.Level {
		case models.LevelPage:
			pages = append(pages, r.Content)
		case models.LevelChunk:
			chunksByPage[*r.PageNum] = append(chunksByPage[*r.PageNum], r.Content)
		}
	}
	if got := strings.Join(pages, " "); got != src {
		t.Fatalf("pages do not reconstruct source")
	}
	for i, page := range pages {
		if got := strings.Join(chunksByPage[i+1], " "); got != page {
			t.Fatalf("chunks of page %d do not reconstruct it", i+1)
		}
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
}

func TestBuildRecordsSiblingContextStaysInPage(t *testing.T) {
	records := BuildRecords("tuberculosis", words(25), 10, 4)
	byPage := map[int][]models.ContentRecord{}
	for _, r := range records {
		if r.Level == models.LevelChunk {
			byPage[*r.PageNum] = append(byPage[*r.PageNum], r)
		}
	}
	for page, chunks := range byPage {
		for i, c := range chunks {
			if *c.ChunkNum != i {
				t.Fatalf("page %d chunk %d numbered %d", page, i, *c.ChunkNum)
			}
			wantPrev, wantNext := "", ""
			if i > 0 {
				wantPrev = chunks[i-1].Content
			}
			if i < len(chunks)-1 {
				wantNext = chunks[i+1].Content
			}
			if c.Context.PreviousChunk != wantPrev || c.Context.NextChunk != wantNext {
				t.Fatalf("page %d chunk %d context = %+v", page, i, *c.Context)
			}
		}
	}
	// Page 2 starts fresh: its first chunk has no previous context even
	// though page 1 has chunks before it.
	if byPage[2][0].Context.PreviousChunk != "" {
		t.Fatalf("context leaked across pages")
	}
}

func TestCountLevels(t *testing.T) {
	pages, chunks := CountLevels(BuildRecords("t", words(30), 10, 5))
	if pages != 3 || chunks != 6 {
		t.Fatalf("got pages=%d chunks=%d", pages, chunks)
	}
}
