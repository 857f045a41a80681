package orchestrator

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultFor(ch content.Channel, score int) *content.ChannelResult {
	return &content.ChannelResult{Channel: ch, FinalScore: score, State: content.StateExhausted}
}

func TestNewWorkflowRunState(t *testing.T) {
	state := NewWorkflowRunState("Q3 Launch", []content.Channel{content.ChannelBlog})

	assert.NotEmpty(t, state.ID())
	assert.Contains(t, state.ThreadID(), "q3_launch_")
	assert.Equal(t, content.RunRunning, state.Status())
	assert.Equal(t, content.PhaseParsing, state.Phase())
	assert.Nil(t, state.Summary())
	assert.Empty(t, state.Results())
}

func TestMergeChannelResult_OrderIndependent(t *testing.T) {
	inputs := []*content.ChannelResult{
		resultFor(content.ChannelLinkedIn, 7),
		resultFor(content.ChannelNewsletter, 8),
		resultFor(content.ChannelBlog, 9),
	}

	reference := NewWorkflowRunState("t", content.AllChannels())
	for _, r := range inputs {
		reference.MergeChannelResult(r)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]*content.ChannelResult(nil), inputs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		state := NewWorkflowRunState("t", content.AllChannels())
		for _, r := range shuffled {
			state.MergeChannelResult(r)
		}
		assert.Equal(t, reference.Results(), state.Results())
	}
}

func TestMergeChannelResult_Concurrent(t *testing.T) {
	state := NewWorkflowRunState("t", content.AllChannels())

	var wg sync.WaitGroup
	for _, ch := range content.AllChannels() {
		wg.Add(1)
		go func(ch content.Channel) {
			defer wg.Done()
			state.MergeChannelResult(resultFor(ch, 5))
		}(ch)
	}
	wg.Wait()

	results := state.Results()
	require.Len(t, results, 3)
	assert.Equal(t, content.ChannelLinkedIn, results[0].Channel)
	assert.Equal(t, content.ChannelNewsletter, results[1].Channel)
	assert.Equal(t, content.ChannelBlog, results[2].Channel)
}

func TestMergeChannelResult_StoresCopy(t *testing.T) {
	state := NewWorkflowRunState("t", []content.Channel{content.ChannelBlog})
	r := resultFor(content.ChannelBlog, 5)
	state.MergeChannelResult(r)

	r.FinalScore = 1

	stored, ok := state.Result(content.ChannelBlog)
	require.True(t, ok)
	assert.Equal(t, 5, stored.FinalScore)
}

func TestWorkflowRunState_Lifecycle(t *testing.T) {
	state := NewWorkflowRunState("t", []content.Channel{content.ChannelBlog})
	state.MergeChannelResult(resultFor(content.ChannelBlog, 5))

	state.fail(content.ErrorRecord{Stage: content.StageAggregate, Message: "boom"})
	state.finish()

	snapshot := state.Snapshot()
	assert.Equal(t, content.RunFailed, snapshot.Status)
	assert.Equal(t, content.PhaseError, snapshot.Phase)
	assert.Len(t, snapshot.Results, 1)
	assert.False(t, snapshot.CompletedAt.IsZero())
	assert.False(t, snapshot.Succeeded())
}
