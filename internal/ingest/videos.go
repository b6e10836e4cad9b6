package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"medtutor/internal/models"
)

const VideoFile = "Video.txt"

// ParseVideos reads blocks of the form
//
//	Description: ...
//	Urdu:
//	Link: https://...
//	English:
//	Link: https://...
//
// Each Link becomes one record in the language of the nearest preceding
// section header, carrying the nearest preceding description.
func ParseVideos(text, topic string) []models.VideoRecord {
	var (
		out         []models.VideoRecord
		description string
		language    string
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Description:"):
			description = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		case strings.HasPrefix(line, "Urdu:"):
			language = "urdu"
		case strings.HasPrefix(line, "English:"):
			language = "english"
		case strings.HasPrefix(line, "Link:") && language != "":
			url := strings.TrimSpace(strings.TrimPrefix(line, "Link:"))
			if url == "" {
				continue
			}
			out = append(out, models.VideoRecord{URL: url, Description: description, Topic: topic, Language: language})
		}
	}
	return out
}

// LoadVideos parses dir/Video.txt. A missing file yields no records.
func LoadVideos(dir, topic string) ([]models.VideoRecord, error) {
	raw, err := os.ReadFile(filepath.Join(dir, VideoFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read video file: %w", err)
	}
	return ParseVideos(string(raw), topic), nil
}
