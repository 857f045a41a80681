package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/require"
)

// StaticLoader serves topics from memory.
type StaticLoader map[string]content.Documents

// Load returns the named topic or a DocumentStoreError.
func (l StaticLoader) Load(name string) (*content.Topic, error) {
	docs, ok := l[name]
	if !ok {
		return nil, &content.DocumentStoreError{Topic: name, Err: fmt.Errorf("topic folder not found")}
	}
	return &content.Topic{
		Name:      name,
		Documents: docs.Clone(),
		Meta: content.TopicMeta{
			Folder:           name,
			FileCount:        len(docs),
			MissingDocuments: docs.Missing(),
			ParsedAt:         time.Now().UTC(),
		},
	}, nil
}

// SampleDocuments is a small but complete document set.
func SampleDocuments() content.Documents {
	return content.Documents{
		content.CategoryProductRoadmap:    "Q3: ship CSV export for all plans.",
		content.CategoryEngineeringTicket: "ENG-42: streaming CSV writer, p95 under 2s for 1M rows.",
		content.CategoryCustomerFeedback:  "\"Finally I can get my data out\" - ops lead, Acme",
	}
}

// WriteTopic creates <root>/<topic>/ with the given file name → body map.
func WriteTopic(t *testing.T, root, topic string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, topic)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

// Workspace is an isolated project directory with quill.yml, source/ and
// output/ laid out the way `quill init` creates them.
type Workspace struct {
	T          *testing.T
	Dir        string
	ConfigPath string
	SourceDir  string
	OutputDir  string
}

// MockConfigYML is a quill.yml that drives the offline mock backend.
func MockConfigYML(extra string) string {
	return `version: "1.0"
api:
  provider: mock
  max_retries: 0
workflow:
  max_refinement_iterations: 2
  source_dir: source
  output_dir: output
  examples_dir: examples
logging:
  file: logs/workflow.log
  console: false
` + extra
}

// SetupWorkspace creates a workspace and changes into it for the test's duration.
func SetupWorkspace(t *testing.T, configYML string) *Workspace {
	t.Helper()
	dir := t.TempDir()

	ws := &Workspace{
		T:          t,
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "quill.yml"),
		SourceDir:  filepath.Join(dir, "source"),
		OutputDir:  filepath.Join(dir, "output"),
	}
	require.NoError(t, os.WriteFile(ws.ConfigPath, []byte(configYML), 0644))
	require.NoError(t, os.MkdirAll(ws.SourceDir, 0755))

	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(original) })

	return ws
}

// AddTopic writes a topic folder with one file per sample category.
func (ws *Workspace) AddTopic(name string) {
	ws.T.Helper()
	WriteTopic(ws.T, ws.SourceDir, name, map[string]string{
		"Product Roadmap Summary.txt": "Q3: ship CSV export for all plans.",
		"Linear Ticket ENG-42.md":     "Streaming CSV writer, p95 under 2s for 1M rows.",
		"Customer Feedback.txt":       "\"Finally I can get my data out\" - ops lead, Acme",
	})
}

// ReadOutput reads a file under output/<topic>/.
func (ws *Workspace) ReadOutput(topic, name string) string {
	ws.T.Helper()
	data, err := os.ReadFile(filepath.Join(ws.OutputDir, topic, name))
	require.NoError(ws.T, err)
	return string(data)
}
