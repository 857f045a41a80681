package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/quill/internal/testutil"
	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupClient(t *testing.T) (*blackboard.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// startStream runs StreamActivity in the background and waits until both
// subscriptions are live.
func startStream(t *testing.T, client *blackboard.Client, mr *miniredis.Miniredis, format OutputFormat, opts StreamOptions) (*syncBuffer, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- StreamActivity(ctx, client, format, opts, out)
	}()

	channelKey := blackboard.ChannelEventsChannel("test-instance")
	runKey := blackboard.RunEventsChannel("test-instance")
	require.Eventually(t, func() bool {
		subs := mr.PubSubNumSub(channelKey, runKey)
		return subs[channelKey] == 1 && subs[runKey] == 1
	}, 2*time.Second, 10*time.Millisecond)

	return out, cancel, done
}

func TestStreamActivity(t *testing.T) {
	t.Run("default format prints channel and run events", func(t *testing.T) {
		client, mr := setupClient(t)
		out, cancel, done := startStream(t, client, mr, OutputFormatDefault, StreamOptions{})
		ctx := context.Background()

		result := testutil.Result(content.ChannelLinkedIn, "q3_launch", 9, true)
		record := testutil.Record("q3_launch", time.Now(), result)

		require.NoError(t, client.SaveChannelResult(ctx, record.ID, result))
		require.NoError(t, client.SaveRun(ctx, record))

		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), "Run completed")
		}, 2*time.Second, 10*time.Millisecond)

		output := out.String()
		assert.Contains(t, output, "✅ LinkedIn passed: topic=q3_launch score=9/10")
		assert.Contains(t, output, "run="+record.ID[:8])
		assert.Contains(t, output, "🎉 Run completed: topic=q3_launch")
		assert.Contains(t, output, "passed=1/1 avg=9.0")

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not stop after cancel")
		}
	})

	t.Run("json format", func(t *testing.T) {
		client, mr := setupClient(t)
		out, _, _ := startStream(t, client, mr, OutputFormatJSON, StreamOptions{})

		result := testutil.Result(content.ChannelBlog, "pricing", 5, false)
		require.NoError(t, client.SaveChannelResult(context.Background(), "550e8400-e29b-41d4-a716-446655440000", result))

		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), `"event":"channel_completed"`)
		}, 2*time.Second, 10*time.Millisecond)
		assert.Contains(t, out.String(), `"channel":"blog"`)
		assert.Contains(t, out.String(), `"state":"exhausted"`)
	})

	t.Run("topic filter and exit on run event", func(t *testing.T) {
		client, mr := setupClient(t)
		out, _, done := startStream(t, client, mr, OutputFormatDefault, StreamOptions{Topic: "wanted", ExitOnRunEvent: true})
		ctx := context.Background()

		other := testutil.Record("other", time.Now(), testutil.Result(content.ChannelBlog, "other", 9, true))
		wanted := testutil.Record("wanted", time.Now(), testutil.Result(content.ChannelBlog, "wanted", 9, true))
		require.NoError(t, client.SaveRun(ctx, other))
		require.NoError(t, client.SaveRun(ctx, wanted))

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not exit after run event")
		}
		assert.Contains(t, out.String(), "topic=wanted")
		assert.NotContains(t, out.String(), "topic=other")
	})

	t.Run("unknown format", func(t *testing.T) {
		client, _ := setupClient(t)
		err := StreamActivity(context.Background(), client, OutputFormat("xml"), StreamOptions{}, &syncBuffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
}

func TestPollForRun(t *testing.T) {
	t.Run("finds run saved while polling", func(t *testing.T) {
		client, _ := setupClient(t)
		record := testutil.Record("q3_launch", time.Now(), testutil.Result(content.ChannelBlog, "q3_launch", 8, true))

		go func() {
			time.Sleep(300 * time.Millisecond)
			_ = client.SaveRun(context.Background(), record)
		}()

		run, err := PollForRun(context.Background(), client, record.ID, 3*time.Second)
		require.NoError(t, err)
		assert.Equal(t, record.ID, run.ID)
		assert.Equal(t, "q3_launch", run.Topic)
	})

	t.Run("times out", func(t *testing.T) {
		client, _ := setupClient(t)

		_, err := PollForRun(context.Background(), client, "550e8400-e29b-41d4-a716-446655440000", 500*time.Millisecond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRunNotFound))
	})

	t.Run("context cancelled", func(t *testing.T) {
		client, _ := setupClient(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := PollForRun(ctx, client, "550e8400-e29b-41d4-a716-446655440000", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFormatters(t *testing.T) {
	channelEvent := &blackboard.ChannelEvent{
		RunID:       "abcdef12-3456",
		Topic:       "q3_launch",
		Channel:     content.ChannelNewsletter,
		State:       content.StateFailed,
		Iterations:  0,
		TimestampMs: time.Date(2025, 1, 1, 9, 30, 0, 0, time.Local).UnixMilli(),
	}

	t.Run("default channel event", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&defaultFormatter{writer: &buf}).FormatChannel(channelEvent))
		assert.Equal(t, "[09:30:00] ❌ Newsletter Email failed: topic=q3_launch score=0/10 iterations=0 run=abcdef12\n", buf.String())
	})

	tests := []struct {
		name  string
		event *blackboard.RunEvent
		want  []string
	}{
		{
			name:  "failed run",
			event: &blackboard.RunEvent{Topic: "t", ThreadID: "t_1", Status: content.RunFailed, Errors: 1},
			want:  []string{"💥 Run failed: topic=t thread=t_1", "errors=1"},
		},
		{
			name:  "completed with errors",
			event: &blackboard.RunEvent{Topic: "t", Status: content.RunCompleted, Errors: 2},
			want:  []string{"Run completed with errors", "errors=2"},
		},
		{
			name: "completed with summary",
			event: &blackboard.RunEvent{Topic: "t", Status: content.RunCompleted, Summary: &content.Summary{
				TotalChannels: 3, ChannelsPassed: 2, AverageScore: 8.333, EstimatedCost: 0.0012,
			}},
			want: []string{"🎉 Run completed", "passed=2/3 avg=8.3 cost=$0.0012"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, (&defaultFormatter{writer: &buf}).FormatRun(tt.event))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}

	t.Run("json events", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf}
		require.NoError(t, f.FormatChannel(channelEvent))
		require.NoError(t, f.FormatRun(&blackboard.RunEvent{RunID: "r1", Status: content.RunCompleted}))
		require.NoError(t, f.FormatError(fmt.Errorf("bad payload")))

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 3)
		assert.Contains(t, string(lines[0]), `"event":"channel_completed"`)
		assert.Contains(t, string(lines[0]), `"channel":"newsletter"`)
		assert.Contains(t, string(lines[1]), `"event":"run_completed"`)
		assert.Contains(t, string(lines[1]), `"run_id":"r1"`)
		assert.Contains(t, string(lines[2]), `"message":"bad payload"`)
	})
}
