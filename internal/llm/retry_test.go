package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient fails the first `failures` calls and then succeeds.
type scriptedClient struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *scriptedClient) Model() string { return "scripted" }

func (s *scriptedClient) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("503 overloaded")
	}
	return `{"ok":true}`, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestRetrying_SucceedsAfterFailures(t *testing.T) {
	base := &scriptedClient{failures: 2}
	r := NewRetrying(base, RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond})
	r.sleep = noSleep

	text, err := r.Complete(context.Background(), Request{Operation: OpGenerate})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, 3, base.calls)
}

func TestRetrying_Exhausted(t *testing.T) {
	base := &scriptedClient{failures: 10}
	r := NewRetrying(base, RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond})
	r.sleep = noSleep

	_, err := r.Complete(context.Background(), Request{Operation: OpJudge})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	// max_retries counts retries, so two retries means three calls.
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	assert.Contains(t, err.Error(), "503 overloaded")
	assert.Equal(t, 3, base.calls)
}

func TestRetrying_ZeroRetries(t *testing.T) {
	base := &scriptedClient{failures: 1}
	r := NewRetrying(base, RetryPolicy{MaxRetries: 0})
	r.sleep = noSleep

	_, err := r.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestRetrying_StopsOnCancel(t *testing.T) {
	base := &scriptedClient{failures: 10}
	r := NewRetrying(base, RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Complete(ctx, Request{Operation: OpRefine})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, base.calls)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), CalculateBackoff(time.Second, 0))
	assert.Equal(t, time.Duration(0), CalculateBackoff(0, 3))

	for attempt := 1; attempt <= 4; attempt++ {
		expected := time.Second * time.Duration(1<<uint(attempt-1))
		got := CalculateBackoff(time.Second, attempt)
		assert.GreaterOrEqual(t, got, expected*3/4, "attempt %d", attempt)
		assert.LessOrEqual(t, got, expected*5/4, "attempt %d", attempt)
	}

	capped := CalculateBackoff(time.Second, 30)
	assert.LessOrEqual(t, capped, maxBackoff*5/4)
}

func TestMockClient_JudgeProgression(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	first, err := m.Complete(ctx, Request{Operation: OpJudge, Channel: content.ChannelBlog})
	require.NoError(t, err)
	assert.Contains(t, first, `"score":6`)
	assert.Contains(t, first, `"passes_quality":false`)

	second, err := m.Complete(ctx, Request{Operation: OpJudge, Channel: content.ChannelBlog})
	require.NoError(t, err)
	assert.Contains(t, second, `"passes_quality":true`)

	other, err := m.Complete(ctx, Request{Operation: OpJudge, Channel: content.ChannelLinkedIn})
	require.NoError(t, err)
	assert.Contains(t, other, `"score":6`)
}

func TestMockClient_GenerateIsValidContent(t *testing.T) {
	m := NewMockClient()

	for _, ch := range content.AllChannels() {
		raw, err := m.Complete(context.Background(), Request{Operation: OpGenerate, Channel: ch})
		require.NoError(t, err)

		_, err = content.ParseContent(ch, []byte(raw))
		assert.NoError(t, err, "channel %s", ch)
	}
}
