package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExample(t *testing.T, dir string, ch content.Channel, name, body string) {
	t.Helper()
	chDir := filepath.Join(dir, string(ch))
	require.NoError(t, os.MkdirAll(chDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(chDir, name), []byte(body), 0644))
}

func TestLoadExamples(t *testing.T) {
	dir := t.TempDir()
	writeExample(t, dir, content.ChannelLinkedIn, "a.json",
		`{"topic": "Dark mode", "content": "Dark mode is here.", "hashtags": ["UX"]}`)
	writeExample(t, dir, content.ChannelLinkedIn, "b.json",
		`{"content": "No topic."  , "hashtags": []}`)
	writeExample(t, dir, content.ChannelLinkedIn, "bad.json", `{"content": 42}`)
	writeExample(t, dir, content.ChannelLinkedIn, "notes.txt", `ignored`)

	examples, err := NewExampleStore(dir).Examples(content.ChannelLinkedIn)
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "Dark mode", examples[0].Topic)
	post, ok := examples[0].Content.(*content.LinkedInPost)
	require.True(t, ok)
	assert.Equal(t, []string{"UX"}, post.Hashtags)
	assert.Empty(t, examples[1].Topic)
}

func TestLoadExamples_MissingDir(t *testing.T) {
	examples, err := LoadExamples(filepath.Join(t.TempDir(), "none"), content.ChannelBlog)
	require.NoError(t, err)
	assert.Empty(t, examples)
}
