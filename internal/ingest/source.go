// Package ingest reads topic folders from the data root: PDF text,
// described diagrams and the video list.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"medtutor/internal/topics"
	"medtutor/internal/util"

	"github.com/ledongthuc/pdf"
)

var sourceExts = map[string]bool{".pdf": true, ".png": true, ".txt": true}

func TopicDir(root string, t topics.Topic) string {
	return filepath.Join(root, t.Folder)
}

// ListPDFs returns the PDFs directly under dir in filename order.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read topic dir: %w", err)
	}
	paths := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func ExtractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return util.SanitizeText(strings.TrimSpace(buf.String())), nil
}

// ExtractTopicText concatenates the text of every PDF in dir. A folder
// whose PDFs yield no text fails with util.ErrNoExtractableText.
func ExtractTopicText(dir string) (string, error) {
	paths, err := ListPDFs(dir)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		text, err := ExtractPDFText(p)
		if err != nil {
			return "", fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", util.ErrNoExtractableText
	}
	return strings.Join(parts, "\n"), nil
}

// HashSources fingerprints every source file under dir so unchanged
// topics can be skipped.
func HashSources(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read topic dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && sourceExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	manifest := sha256.New()
	for _, name := range names {
		sum, err := fileSum(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", name, err)
		}
		fmt.Fprintf(manifest, "%s\x00%x\n", name, sum)
	}
	return hex.EncodeToString(manifest.Sum(nil)), nil
}

func fileSum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
