package docstore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/dyluth/quill/pkg/content"
)

// ExampleStore reads few-shot examples from <dir>/<channel>/*.json. Each file
// holds the channel's content fields plus an optional "topic".
type ExampleStore struct {
	dir string
}

// NewExampleStore returns an example store rooted at dir.
func NewExampleStore(dir string) *ExampleStore {
	return &ExampleStore{dir: dir}
}

// Examples implements orchestrator.ExampleLoader.
func (s *ExampleStore) Examples(ch content.Channel) ([]content.Example, error) {
	return LoadExamples(s.dir, ch)
}

// LoadExamples reads the examples for ch. A missing directory yields none;
// malformed files are skipped with a warning.
func LoadExamples(dir string, ch content.Channel) ([]content.Example, error) {
	pattern := filepath.Join(dir, string(ch), "*.json")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid examples pattern %s: %w", pattern, err)
	}
	sort.Strings(paths)

	examples := make([]content.Example, 0, len(paths))
	for _, path := range paths {
		ex, err := readExample(path, ch)
		if err != nil {
			log.Printf("[DocStore] Warning: failed to load example %s: %v", path, err)
			continue
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

func readExample(path string, ch content.Channel) (content.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return content.Example{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return content.Example{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var topic string
	if raw, ok := fields["topic"]; ok {
		if err := json.Unmarshal(raw, &topic); err != nil {
			return content.Example{}, fmt.Errorf("field 'topic' must be a string")
		}
		delete(fields, "topic")
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return content.Example{}, err
	}
	c, err := content.ParseContent(ch, body)
	if err != nil {
		return content.Example{}, err
	}
	return content.Example{Topic: topic, Content: c}, nil
}
