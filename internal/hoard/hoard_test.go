package hoard

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/quill/internal/filter"
	"github.com/dyluth/quill/internal/testutil"
	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) *blackboard.Client {
	t.Helper()
	mr := miniredis.RunT(t)

	bbClient, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { bbClient.Close() })
	return bbClient
}

func seedRuns(t *testing.T, bbClient *blackboard.Client) (older, newer *content.RunRecord) {
	t.Helper()
	ctx := context.Background()

	older = testutil.Record("q3_launch", time.Now().Add(-3*time.Hour),
		testutil.Result(content.ChannelLinkedIn, "q3_launch", 9, true),
		testutil.Result(content.ChannelBlog, "q3_launch", 6, false),
	)
	newer = testutil.Record("pricing_update", time.Now().Add(-10*time.Minute),
		testutil.Result(content.ChannelNewsletter, "pricing_update", 8, true),
	)
	require.NoError(t, bbClient.SaveRun(ctx, older))
	require.NoError(t, bbClient.SaveRun(ctx, newer))
	return older, newer
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("empty blackboard - default format", func(t *testing.T) {
		bbClient := setupClient(t)

		var buf bytes.Buffer
		require.NoError(t, ListRuns(ctx, bbClient, OutputFormatDefault, nil, &buf))
		assert.Contains(t, buf.String(), "No runs found for instance 'test-instance'")
	})

	t.Run("empty blackboard - jsonl format", func(t *testing.T) {
		bbClient := setupClient(t)

		var buf bytes.Buffer
		require.NoError(t, ListRuns(ctx, bbClient, OutputFormatJSONL, nil, &buf))
		assert.Empty(t, buf.String())
	})

	t.Run("table lists runs oldest first", func(t *testing.T) {
		bbClient := setupClient(t)
		older, newer := seedRuns(t, bbClient)

		var buf bytes.Buffer
		require.NoError(t, ListRuns(ctx, bbClient, OutputFormatDefault, nil, &buf))

		output := buf.String()
		assert.Contains(t, output, "Runs for instance 'test-instance'")
		assert.Contains(t, output, "2 runs found")
		assert.Contains(t, output, older.ID[:8])
		assert.Contains(t, output, "1/2")
		assert.Contains(t, output, "7.5")
		assert.Contains(t, output, "3h ago")
		assert.Less(t, strings.Index(output, older.ID[:8]), strings.Index(output, newer.ID[:8]))
	})

	t.Run("jsonl emits one run per line", func(t *testing.T) {
		bbClient := setupClient(t)
		older, newer := seedRuns(t, bbClient)

		var buf bytes.Buffer
		require.NoError(t, ListRuns(ctx, bbClient, OutputFormatJSONL, nil, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		var first, second blackboard.Run
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		assert.Equal(t, older.ID, first.ID)
		assert.Equal(t, newer.ID, second.ID)
		assert.Equal(t, "pricing_update", second.Topic)
	})

	t.Run("filters apply", func(t *testing.T) {
		bbClient := setupClient(t)
		_, newer := seedRuns(t, bbClient)

		tests := []struct {
			name     string
			criteria *filter.Criteria
			want     int
		}{
			{name: "since pushes down to index", criteria: &filter.Criteria{SinceTimestampMs: time.Now().Add(-time.Hour).UnixMilli()}, want: 1},
			{name: "topic glob", criteria: &filter.Criteria{TopicGlob: "q3_*"}, want: 1},
			{name: "channel", criteria: &filter.Criteria{Channel: content.ChannelNewsletter}, want: 1},
			{name: "status", criteria: &filter.Criteria{Status: content.RunFailed}, want: 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, ListRuns(ctx, bbClient, OutputFormatJSONL, tt.criteria, &buf))
				out := strings.TrimSpace(buf.String())
				if tt.want == 0 {
					assert.Empty(t, out)
					return
				}
				assert.Len(t, strings.Split(out, "\n"), tt.want)
			})
		}

		var buf bytes.Buffer
		require.NoError(t, ListRuns(ctx, bbClient, OutputFormatJSONL, &filter.Criteria{TopicGlob: "pricing*"}, &buf))
		assert.Contains(t, buf.String(), newer.ID)
	})

	t.Run("unknown format", func(t *testing.T) {
		bbClient := setupClient(t)

		var buf bytes.Buffer
		err := ListRuns(ctx, bbClient, OutputFormat("xml"), nil, &buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
}

func TestGetRun(t *testing.T) {
	ctx := context.Background()

	t.Run("run with results", func(t *testing.T) {
		bbClient := setupClient(t)
		older, _ := seedRuns(t, bbClient)

		var buf bytes.Buffer
		require.NoError(t, GetRun(ctx, bbClient, older.ID, &buf))

		var detail struct {
			ID      string                   `json:"id"`
			Topic   string                   `json:"topic"`
			Results []*content.ChannelResult `json:"results"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &detail))
		assert.Equal(t, older.ID, detail.ID)
		assert.Equal(t, "q3_launch", detail.Topic)
		require.Len(t, detail.Results, 2)
		assert.Equal(t, content.ChannelLinkedIn, detail.Results[0].Channel)
		assert.Equal(t, content.ChannelBlog, detail.Results[1].Channel)
		assert.NotNil(t, detail.Results[0].Content)
	})

	t.Run("invalid id", func(t *testing.T) {
		bbClient := setupClient(t)

		err := GetRun(ctx, bbClient, "not-a-uuid", &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid run ID format")
	})

	t.Run("missing run", func(t *testing.T) {
		bbClient := setupClient(t)

		err := GetRun(ctx, bbClient, "550e8400-e29b-41d4-a716-446655440000", &bytes.Buffer{})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "12345678", formatID("12345678-aaaa"))
	assert.Equal(t, "short", formatID("short"))
	assert.Equal(t, "a_very_long_topic_fol...", formatTopic("a_very_long_topic_folder_name"))

	withErrors := &blackboard.Run{Status: content.RunCompleted, Errors: []content.ErrorRecord{{Message: "x"}}}
	assert.Equal(t, "completed!", formatStatus(withErrors))
	assert.Equal(t, "failed", formatStatus(&blackboard.Run{Status: content.RunFailed}))

	assert.Equal(t, "-", formatPassed(&blackboard.Run{}))
	assert.Equal(t, "-", formatAverage(nil))
	assert.Equal(t, "-", formatTimestamp(0))
	assert.Equal(t, "2d ago", formatTimestamp(time.Now().Add(-49*time.Hour).UnixMilli()))
	assert.Equal(t, "5m ago", formatTimestamp(time.Now().Add(-5*time.Minute-time.Second).UnixMilli()))
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}
