package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"medtutor/internal/models"
)

var diagramPrefixes = []string{"Box", "Fig", "Table", "Summary box"}

// DiagramType maps a filename prefix to its type tag, e.g. "Summary box 2.png"
// to "summary_box". Unknown prefixes yield "unknown".
func DiagramType(filename string) string {
	for _, p := range diagramPrefixes {
		if strings.HasPrefix(filename, p) {
			return strings.ReplaceAll(strings.ToLower(p), " ", "_")
		}
	}
	return "unknown"
}

func isDiagramFile(name string) bool {
	return DiagramType(name) != "unknown"
}

// ListDiagrams returns one record per prefixed PNG in dir that has a
// non-empty sibling .txt description. Skipped names are returned for logging.
func ListDiagrams(dir, topic string) ([]models.DiagramRecord, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read topic dir: %w", err)
	}
	var (
		out     []models.DiagramRecord
		skipped []string
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".png") || !isDiagramFile(name) {
			continue
		}
		descPath := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".txt")
		raw, err := os.ReadFile(descPath)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		desc := strings.TrimSpace(string(raw))
		if desc == "" {
			skipped = append(skipped, name)
			continue
		}
		out = append(out, models.DiagramRecord{
			ImagePath:   "/diagrams/" + topic + "/" + name,
			Description: desc,
			Topic:       topic,
			DiagramType: DiagramType(name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImagePath < out[j].ImagePath })
	return out, skipped, nil
}
