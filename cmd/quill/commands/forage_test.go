package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/internal/printer"
	"github.com/dyluth/quill/internal/testutil"
	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forageFlags struct {
	topic       string
	allTopics   bool
	allChannels bool
	dryRun      bool
	html        bool
}

// forage runs the forage command with the given flags and returns what it
// printed to stdout and stderr.
func forage(t *testing.T, flags forageFlags, args ...string) (string, string, error) {
	t.Helper()

	configPath = config.DefaultConfigFile
	forageTopic = flags.topic
	forageAllTopics = flags.allTopics
	forageAllChannels = flags.allChannels
	forageDryRun = flags.dryRun
	forageHTML = flags.html
	t.Cleanup(func() {
		forageTopic, forageAllTopics, forageAllChannels, forageDryRun, forageHTML = "", false, false, false, false
	})

	var stdout, stderr bytes.Buffer
	restore := printer.SetOutput(&stdout, &stderr)
	defer restore()

	err := runForage(forageCmd, args)
	return stdout.String(), stderr.String(), err
}

func TestForage_DefaultChannel(t *testing.T) {
	ws := testutil.SetupWorkspace(t, testutil.MockConfigYML(""))
	ws.AddTopic("csv_export")

	stdout, _, err := forage(t, forageFlags{})
	require.NoError(t, err)

	assert.Contains(t, stdout, "Found 1 topic(s)")
	assert.Contains(t, stdout, "RESULTS: csv_export")

	assert.Contains(t, ws.ReadOutput("csv_export", "linkedin.md"), "LinkedIn")
	assert.NotEmpty(t, ws.ReadOutput("csv_export", "linkedin.json"))
	assert.NotEmpty(t, ws.ReadOutput("csv_export", "parsed_documents.json"))
	assert.Contains(t, ws.ReadOutput("csv_export", "run_summary.json"), `"status": "completed"`)

	_, err = os.Stat(filepath.Join(ws.OutputDir, "csv_export", "newsletter.json"))
	assert.True(t, os.IsNotExist(err), "only the default channel should be generated")

	_, err = os.Stat(filepath.Join(ws.Dir, "logs", "workflow.log"))
	assert.NoError(t, err, "log file should be created")
}

func TestForage_AllChannelsAllTopics(t *testing.T) {
	ws := testutil.SetupWorkspace(t, testutil.MockConfigYML(""))
	ws.AddTopic("csv_export")
	ws.AddTopic("sso_launch")

	stdout, _, err := forage(t, forageFlags{allTopics: true, allChannels: true, html: true})
	require.NoError(t, err)

	assert.Contains(t, stdout, "FINAL SUMMARY")
	assert.Contains(t, stdout, "Total topics processed: 2")
	for _, topic := range []string{"csv_export", "sso_launch"} {
		for _, ch := range content.AllChannels() {
			assert.NotEmpty(t, ws.ReadOutput(topic, string(ch)+".md"))
			assert.Contains(t, ws.ReadOutput(topic, string(ch)+".html"), "<h1>")
		}
	}
}

func TestForage_ExplicitChannelAndTopicIndex(t *testing.T) {
	ws := testutil.SetupWorkspace(t, testutil.MockConfigYML(""))
	ws.AddTopic("alpha")
	ws.AddTopic("beta")

	stdout, _, err := forage(t, forageFlags{topic: "2"}, "blog")
	require.NoError(t, err)

	assert.Contains(t, stdout, "RESULTS: beta")
	assert.NotEmpty(t, ws.ReadOutput("beta", "blog.json"))
	_, err = os.Stat(filepath.Join(ws.OutputDir, "alpha"))
	assert.True(t, os.IsNotExist(err))
}

func TestForage_DryRunOverridesProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	yml := `version: "1.0"
api:
  provider: openai
logging:
  file: logs/workflow.log
  console: false
`
	ws := testutil.SetupWorkspace(t, yml)
	ws.AddTopic("csv_export")

	_, _, err := forage(t, forageFlags{})
	require.Error(t, err, "openai without a key should fail")

	stdout, _, err := forage(t, forageFlags{dryRun: true})
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dry run")
	assert.NotEmpty(t, ws.ReadOutput("csv_export", "linkedin.json"))
}

func TestForage_Errors(t *testing.T) {
	tests := []struct {
		name      string
		extraYML  string
		topics    []string
		flags     forageFlags
		args      []string
		wantTitle string
	}{
		{
			name:      "no topics",
			wantTitle: "topic not found",
		},
		{
			name:      "unknown topic",
			topics:    []string{"csv_export"},
			flags:     forageFlags{topic: "payments"},
			wantTitle: "topic not found",
		},
		{
			name:      "ambiguous topic",
			topics:    []string{"csv_export", "csv_import"},
			flags:     forageFlags{topic: "csv"},
			wantTitle: "ambiguous topic",
		},
		{
			name:      "unknown channel",
			topics:    []string{"csv_export"},
			args:      []string{"tiktok"},
			wantTitle: "invalid channel",
		},
		{
			name:      "disabled channel",
			extraYML:  "channels:\n  enabled: [linkedin]\n",
			topics:    []string{"csv_export"},
			args:      []string{"blog"},
			wantTitle: "invalid channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := testutil.SetupWorkspace(t, testutil.MockConfigYML(tt.extraYML))
			for _, topic := range tt.topics {
				ws.AddTopic(topic)
			}

			_, stderr, err := forage(t, tt.flags, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantTitle, err.Error())
			assert.Contains(t, stderr, tt.wantTitle)
		})
	}
}

func TestForage_MissingConfig(t *testing.T) {
	dir := t.TempDir()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(original) })

	_, stderr, err := forage(t, forageFlags{})
	require.Error(t, err)
	assert.Equal(t, "quill.yml not found", err.Error())
	assert.Contains(t, stderr, "quill init")
}

func TestForage_PublishesToBlackboard(t *testing.T) {
	mr := miniredis.RunT(t)
	redisURL := fmt.Sprintf("redis://%s/0", mr.Addr())

	ws := testutil.SetupWorkspace(t, testutil.MockConfigYML(fmt.Sprintf(
		"output:\n  redis:\n    url: %s\n    instance: e2e\n", redisURL)))
	ws.AddTopic("csv_export")

	_, _, err := forage(t, forageFlags{allChannels: true})
	require.NoError(t, err)

	client, err := blackboard.NewClientFromURL(redisURL, "e2e")
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	ids, err := client.ListRunIDs(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	run, err := client.GetRun(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, content.RunCompleted, run.Status)
	assert.Equal(t, "csv_export", run.Topic)

	results, err := client.GetChannelResults(ctx, run)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Passed, "%s should pass after refinement", r.Channel)
	}
}

func TestTopics_ListsWithIndex(t *testing.T) {
	ws := testutil.SetupWorkspace(t, testutil.MockConfigYML(""))
	ws.AddTopic("beta")
	ws.AddTopic("alpha")
	configPath = config.DefaultConfigFile

	var stdout bytes.Buffer
	restore := printer.SetOutput(&stdout, &bytes.Buffer{})
	defer restore()

	require.NoError(t, runTopics(topicsCmd, nil))
	assert.Contains(t, stdout.String(), "Found 2 topic(s)")
	assert.Contains(t, stdout.String(), "1. alpha")
	assert.Contains(t, stdout.String(), "2. beta")
}
