package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/internal/orchestrator"
	"github.com/dyluth/quill/internal/testutil"
	"github.com/dyluth/quill/pkg/content"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTopics struct {
	topics []string
	err    error
}

func (s staticTopics) ListTopics() ([]string, error) { return s.topics, s.err }

func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func newHandlers(t *testing.T, topics TopicLister) *Handlers {
	t.Helper()
	cfg := config.Default()
	loader := testutil.StaticLoader{"q3_launch": testutil.SampleDocuments()}
	factory := testutil.Factory(map[content.Channel]*testutil.ScriptedEngine{
		content.ChannelLinkedIn:   testutil.Passing(content.ChannelLinkedIn, 9),
		content.ChannelNewsletter: testutil.Passing(content.ChannelNewsletter, 8),
		content.ChannelBlog:       testutil.Passing(content.ChannelBlog, 10),
	})
	return NewHandlers(topics, orchestrator.NewOrchestrator(loader, factory, cfg), cfg.SelectChannels)
}

func TestListTopics(t *testing.T) {
	h := newHandlers(t, staticTopics{topics: []string{"pricing", "q3_launch"}})

	result, err := h.ListTopics(context.Background(), newRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body struct {
		Topics []topicEntry `json:"topics"`
		Count  int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, topicEntry{Index: 2, Name: "q3_launch"}, body.Topics[1])
}

func TestListTopics_Error(t *testing.T) {
	h := newHandlers(t, staticTopics{err: errors.New("permission denied")})

	result, err := h.ListTopics(context.Background(), newRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "permission denied")
}

func TestGenerateContent(t *testing.T) {
	h := newHandlers(t, staticTopics{topics: []string{"pricing", "q3_launch"}})

	result, err := h.GenerateContent(context.Background(), newRequest(map[string]interface{}{
		"topic":        "q3",
		"all_channels": true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var body struct {
		Topic     string `json:"topic"`
		Status    string `json:"status"`
		Succeeded bool   `json:"succeeded"`
		Channels  []struct {
			Channel string                 `json:"channel"`
			Score   int                    `json:"score"`
			Passed  bool                   `json:"passed"`
			Content map[string]interface{} `json:"content"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))

	assert.Equal(t, "q3_launch", body.Topic)
	assert.Equal(t, "completed", body.Status)
	assert.True(t, body.Succeeded)
	require.Len(t, body.Channels, 3)
	assert.Equal(t, "linkedin", body.Channels[0].Channel)
	assert.Equal(t, 9, body.Channels[0].Score)
	assert.Contains(t, body.Channels[0].Content, "hashtags")
	assert.Equal(t, "blog", body.Channels[2].Channel)
	assert.Contains(t, body.Channels[2].Content, "title")
}

func TestGenerateContent_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing topic", args: map[string]interface{}{}, want: "topic argument is required"},
		{name: "unknown topic", args: map[string]interface{}{"topic": "holiday"}, want: "no topics found matching 'holiday'"},
		{name: "unknown channel", args: map[string]interface{}{"topic": "1", "channel": "tiktok"}, want: "unknown channel"},
		{name: "topic without documents", args: map[string]interface{}{"topic": "pricing"}, want: "run failed"},
	}

	h := newHandlers(t, staticTopics{topics: []string{"pricing", "q3_launch"}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.GenerateContent(context.Background(), newRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}
