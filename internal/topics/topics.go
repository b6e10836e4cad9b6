package topics

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Topic is one member of the closed set of subjects the assistant covers.
type Topic struct {
	Key    string `yaml:"key" json:"key"`
	Label  string `yaml:"label" json:"label"`
	Folder string `yaml:"folder" json:"folder"`
}

// Catalog is immutable after construction. Order matters: label matching
// walks topics in catalog order and returns the first hit.
type Catalog struct {
	topics []Topic
	byKey  map[string]Topic
}

type catalogFile struct {
	Topics []Topic `yaml:"topics"`
}

func Default() *Catalog {
	c, _ := New([]Topic{
		{Key: "tuberculosis", Label: "tuberculosis", Folder: "Tuberculosis"},
		{Key: "turner_syndrome", Label: "turner syndrome", Folder: "Turner syndrome"},
		{Key: "trigeminal_neuralgia", Label: "trigeminal neuralgia", Folder: "Trigeminal Neuralgia"},
		{Key: "colorectal_cancer", Label: "colorectal cancer", Folder: "Colorectal cancer"},
		{Key: "lumbar_disc_herniation", Label: "lumbar disc herniation", Folder: "Lumber disc herniation"},
	})
	return c
}

func New(list []Topic) (*Catalog, error) {
	if len(list) == 0 {
		return nil, errors.New("topic catalog is empty")
	}
	c := &Catalog{byKey: make(map[string]Topic, len(list))}
	for _, t := range list {
		t.Key = strings.TrimSpace(t.Key)
		t.Label = strings.TrimSpace(t.Label)
		if t.Key == "" || t.Label == "" {
			return nil, fmt.Errorf("topic %+v needs key and label", t)
		}
		if _, dup := c.byKey[t.Key]; dup {
			return nil, fmt.Errorf("duplicate topic key %q", t.Key)
		}
		if t.Folder == "" {
			t.Folder = t.Key
		}
		c.topics = append(c.topics, t)
		c.byKey[t.Key] = t
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog. An empty path or a missing file yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read topics file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse topics file: %w", err)
	}
	return New(f.Topics)
}

func (c *Catalog) All() []Topic {
	out := make([]Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

func (c *Catalog) Get(key string) (Topic, bool) {
	t, ok := c.byKey[key]
	return t, ok
}

func (c *Catalog) Labels() []string {
	out := make([]string, 0, len(c.topics))
	for _, t := range c.topics {
		out = append(out, t.Label)
	}
	return out
}

// MatchExact returns the topic whose label equals raw exactly.
func (c *Catalog) MatchExact(raw string) (Topic, bool) {
	for _, t := range c.topics {
		if raw == t.Label {
			return t, true
		}
	}
	return Topic{}, false
}

// MatchContains returns the first topic whose label is a substring of raw.
// If one label contains another, the earlier catalog entry wins.
func (c *Catalog) MatchContains(raw string) (Topic, bool) {
	for _, t := range c.topics {
		if strings.Contains(raw, t.Label) {
			return t, true
		}
	}
	return Topic{}, false
}
