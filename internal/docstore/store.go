// Package docstore reads topic folders and few-shot examples from disk.
//
// A topic is a sub-directory of the source directory. Each file inside is
// assigned a document category from keywords in its name; several files of
// one category are concatenated.
package docstore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dyluth/quill/pkg/content"
)

// DocumentSeparator joins several files of the same category.
const DocumentSeparator = "\n\n--- ADDITIONAL DOCUMENT ---\n\n"

// Store is a read-only view of a source directory.
type Store struct {
	sourceDir string
}

// New returns a store rooted at sourceDir. The directory need not exist yet.
func New(sourceDir string) *Store {
	return &Store{sourceDir: sourceDir}
}

// SourceDir returns the directory topics are read from.
func (s *Store) SourceDir() string { return s.sourceDir }

// ListTopics returns the sorted topic folder names. A missing source
// directory has no topics.
func (s *Store) ListTopics() ([]string, error) {
	entries, err := os.ReadDir(s.sourceDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read source directory %s: %w", s.sourceDir, err)
	}

	topics := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			topics = append(topics, entry.Name())
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// Load reads and categorises every supported file of topic. Files that cannot
// be classified or read are skipped with a warning; a folder left with no
// supported files at all is a DocumentStoreError.
func (s *Store) Load(topic string) (*content.Topic, error) {
	dir := filepath.Join(s.sourceDir, topic)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, &content.DocumentStoreError{Topic: topic, Err: fmt.Errorf("topic folder not found: %s", dir)}
	}
	if !info.IsDir() {
		return nil, &content.DocumentStoreError{Topic: topic, Err: fmt.Errorf("path is not a directory: %s", dir)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &content.DocumentStoreError{Topic: topic, Err: err}
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && supported(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return nil, &content.DocumentStoreError{Topic: topic, Err: fmt.Errorf("no supported files found in %s", dir)}
	}
	sort.Strings(files)

	docs := make(content.Documents)
	for _, name := range files {
		category, ok := Classify(name)
		if !ok {
			log.Printf("[DocStore] Warning: could not identify document type for %s/%s", topic, name)
			continue
		}

		text, err := extractText(filepath.Join(dir, name))
		if err != nil {
			log.Printf("[DocStore] Warning: skipping %s/%s: %v", topic, name, err)
			continue
		}

		if existing, ok := docs[category]; ok {
			docs[category] = existing + DocumentSeparator + text
			log.Printf("[DocStore] Appended to %s: %s", category, name)
		} else {
			docs[category] = text
			log.Printf("[DocStore] Parsed %s: %s", category, name)
		}
	}

	return &content.Topic{
		Name:      topic,
		Documents: docs,
		Meta: content.TopicMeta{
			Folder:           topic,
			FileCount:        len(files),
			MissingDocuments: docs.Missing(),
			ParsedAt:         time.Now().UTC(),
		},
	}, nil
}
