// Package curriculum loads the study topics offered to learners.
package curriculum

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var defaultTopics []byte

// Loader loads and caches curriculum content.
type Loader struct {
	rootDir string
	topics  map[string]Topic
	notes   map[string]string
	mu      sync.RWMutex
}

// NewLoader loads topics from rootDir. Every .yaml file holds either a
// single topic or a "topics:" list; a <name>.notes.md file next to a
// single-topic <name>.yaml supplies curated study notes for it. An empty
// rootDir loads the built-in topic list.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		topics:  make(map[string]Topic),
		notes:   make(map[string]string),
	}

	if rootDir == "" {
		if err := l.loadDocument(defaultTopics, "topics.yaml"); err != nil {
			return nil, fmt.Errorf("loading built-in topics: %w", err)
		}
	} else if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "topics", len(l.topics), "notes", len(l.notes))
	return l, nil
}

// GetTopic returns a topic by ID.
func (l *Loader) GetTopic(id string) (Topic, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.topics[id]
	return t, ok
}

// FindByTitle returns the topic whose title matches, ignoring case and
// surrounding space.
func (l *Loader) FindByTitle(title string) (Topic, bool) {
	title = strings.TrimSpace(title)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.topics {
		if strings.EqualFold(t.Title, title) {
			return t, true
		}
	}
	return Topic{}, false
}

// GetNotes returns curated study notes for a topic ID.
func (l *Loader) GetNotes(id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.notes[id]
	return n, ok
}

// AllTopics returns all loaded topics ordered by Order, then title.
func (l *Loader) AllTopics() []Topic {
	l.mu.RLock()
	topics := make([]Topic, 0, len(l.topics))
	for _, t := range l.topics {
		topics = append(topics, t)
	}
	l.mu.RUnlock()

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Order != topics[j].Order {
			return topics[i].Order < topics[j].Order
		}
		return topics[i].Title < topics[j].Title
	})
	return topics
}

func (l *Loader) loadAll() error {
	info, err := os.Stat(l.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.rootDir)
	}

	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".notes.md"):
			return l.loadNotes(path)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return l.loadDocument(data, path)
		}
		return nil
	})
}

// loadDocument adds the topics in one YAML document. Invalid documents are
// logged and skipped.
func (l *Loader) loadDocument(data []byte, path string) error {
	var file topicFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		return nil
	}

	topics := file.Topics
	if len(topics) == 0 {
		var single Topic
		if err := yaml.Unmarshal(data, &single); err != nil {
			slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
			return nil
		}
		topics = []Topic{single}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range topics {
		if t.ID == "" || t.Title == "" {
			continue // not a topic
		}
		l.topics[t.ID] = t
	}
	return nil
}

func (l *Loader) loadNotes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Derive topic ID from the matching YAML file.
	yamlPath := strings.TrimSuffix(path, ".notes.md") + ".yaml"
	yamlData, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil // No matching YAML, skip
	}

	var partial struct {
		ID string `yaml:"id"`
	}
	if err := yaml.Unmarshal(yamlData, &partial); err != nil || partial.ID == "" {
		return nil
	}

	l.mu.Lock()
	l.notes[partial.ID] = string(data)
	l.mu.Unlock()

	return nil
}
