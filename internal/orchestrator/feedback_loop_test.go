package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/dyluth/quill/internal/engine"
	"github.com/dyluth/quill/internal/testutil"
	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runController drives a single scripted engine through a controller.
func runController(t *testing.T, eng *testutil.ScriptedEngine, maxIterations int) *content.ChannelResult {
	t.Helper()
	factory := testutil.Factory(map[content.Channel]*testutil.ScriptedEngine{eng.Channel: eng})
	ctrl := NewChannelController(eng.Channel, factory, maxIterations)
	result := ctrl.Run(context.Background(), ChannelInput{Topic: "exports", Documents: testutil.SampleDocuments()})
	require.NotNil(t, result)
	return result
}

func TestChannelController_PassesFirstTime(t *testing.T) {
	eng := testutil.Passing(content.ChannelLinkedIn, 9)

	result := runController(t, eng, 2)

	assert.Equal(t, content.StatePassed, result.State)
	assert.True(t, result.Passed)
	assert.Equal(t, 9, result.FinalScore)
	assert.Equal(t, 0, result.Iterations)
	assert.Empty(t, result.RefinementHistory)
	assert.Len(t, result.JudgeHistory, 1)
	assert.Equal(t, testutil.Calls{Generate: 1, Judge: 1, Refine: 0}, eng.Calls())
	assert.Equal(t, 2*testutil.TokensPerCall, result.Metrics.TokensUsed)
	assert.Equal(t, 2, result.Metrics.APICalls)
	assert.True(t, result.Succeeded())
}

func TestChannelController_ZeroIterationsJudgesOnce(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelBlog,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "draft")}},
		Judges:    []testutil.Step{{Verdict: testutil.Fail(4)}},
	}

	result := runController(t, eng, 0)

	assert.Equal(t, testutil.Calls{Generate: 1, Judge: 1, Refine: 0}, eng.Calls())
	assert.Equal(t, content.StateExhausted, result.State)
	assert.False(t, result.Passed)
	assert.Equal(t, 4, result.FinalScore)
	assert.Equal(t, 0, result.Iterations)
	assert.Equal(t, testutil.Draft(content.ChannelBlog, "draft"), result.Content)
}

func TestChannelController_IterationCeiling(t *testing.T) {
	tests := []struct {
		name          string
		maxIterations int
	}{
		{name: "one refinement", maxIterations: 1},
		{name: "default of two", maxIterations: 2},
		{name: "five refinements", maxIterations: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &testutil.ScriptedEngine{
				Channel:   content.ChannelNewsletter,
				Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelNewsletter, "v0")}},
				Judges:    []testutil.Step{{Verdict: testutil.Fail(5)}},
				Refines:   []testutil.Step{{Content: testutil.Draft(content.ChannelNewsletter, "refined")}},
			}

			result := runController(t, eng, tt.maxIterations)

			calls := eng.Calls()
			assert.Equal(t, tt.maxIterations, calls.Refine)
			assert.Equal(t, tt.maxIterations+1, calls.Judge)
			assert.Equal(t, tt.maxIterations, result.Iterations)
			assert.Len(t, result.JudgeHistory, tt.maxIterations+1)
			assert.Equal(t, content.StateExhausted, result.State)
			assert.False(t, result.Passed)

			require.Len(t, result.RefinementHistory, tt.maxIterations)
			for i, rec := range result.RefinementHistory {
				assert.Equal(t, i+1, rec.Iteration)
				assert.Equal(t, 5, rec.Score)
			}
		})
	}
}

func TestChannelController_ScoreMatchesReturnedContent(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelLinkedIn,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelLinkedIn, "v0")}},
		Judges: []testutil.Step{
			{Verdict: testutil.Fail(5)},
			{Verdict: testutil.Fail(6)},
			{Verdict: testutil.Fail(7)},
		},
		Refines: []testutil.Step{
			{Content: testutil.Draft(content.ChannelLinkedIn, "v1")},
			{Content: testutil.Draft(content.ChannelLinkedIn, "v2")},
		},
	}

	result := runController(t, eng, 2)

	judged := eng.Judged()
	require.Len(t, judged, 3)
	assert.Equal(t, judged[len(judged)-1], result.Content)
	assert.Equal(t, testutil.Draft(content.ChannelLinkedIn, "v2"), result.Content)
	assert.Equal(t, 7, result.FinalScore)
	assert.Equal(t, []string{"scored 7"}, result.FinalFeedback.Weaknesses)
}

func TestChannelController_PassesAfterRefinement(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelBlog,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "v0")}},
		Judges:    []testutil.Step{{Verdict: testutil.Fail(6)}, {Verdict: testutil.Pass(9)}},
		Refines:   []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "v1")}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StatePassed, result.State)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 9, result.FinalScore)
	assert.Equal(t, testutil.Draft(content.ChannelBlog, "v1"), result.Content)
	assert.Equal(t, []content.RefinementRecord{{
		Iteration: 1,
		Score:     6,
		Feedback:  testutil.Fail(6).Feedback,
	}}, result.RefinementHistory)
}

func TestChannelController_GenerationFailure(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelLinkedIn,
		Generates: []testutil.Step{{Err: errors.New("retries exhausted")}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateFailed, result.State)
	assert.Nil(t, result.Content)
	assert.False(t, result.Passed)
	assert.Equal(t, 0, eng.Calls().Judge)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageGenerate, result.Errors[0].Stage)
	assert.Contains(t, result.Errors[0].Message, "retries exhausted")
	assert.False(t, result.Succeeded())
}

func TestChannelController_GenerationWrongShape(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelLinkedIn,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "wrong")}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateFailed, result.State)
	assert.Nil(t, result.Content)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "engine returned blog content")
}

func TestChannelController_JudgeFailureBeforeAnyVerdict(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelNewsletter,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelNewsletter, "v0")}},
		Judges:    []testutil.Step{{Err: errors.New("judge down")}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateFailed, result.State)
	assert.Equal(t, 0, result.FinalScore)
	assert.Empty(t, result.JudgeHistory)
	assert.Equal(t, testutil.Draft(content.ChannelNewsletter, "v0"), result.Content)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageJudge, result.Errors[0].Stage)
}

func TestChannelController_JudgeFailureKeepsLastJudgedContent(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelBlog,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "v0")}},
		Judges:    []testutil.Step{{Verdict: testutil.Fail(6)}, {Err: errors.New("judge down")}},
		Refines:   []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "v1-unjudged")}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateExhausted, result.State)
	assert.Equal(t, testutil.Draft(content.ChannelBlog, "v0"), result.Content)
	assert.Equal(t, 6, result.FinalScore)
	assert.False(t, result.Passed)
	assert.Equal(t, 0, result.Iterations, "iteration of the judged content")
	require.Len(t, result.RefinementHistory, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageJudge, result.Errors[0].Stage)
}

func TestChannelController_LateJudgeFailureReportsJudgedIteration(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelNewsletter,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelNewsletter, "v0")}},
		Judges:    []testutil.Step{{Verdict: testutil.Fail(5)}, {Verdict: testutil.Fail(7)}, {Err: errors.New("judge down")}},
		Refines: []testutil.Step{
			{Content: testutil.Draft(content.ChannelNewsletter, "v1")},
			{Content: testutil.Draft(content.ChannelNewsletter, "v2-unjudged")},
		},
	}

	result := runController(t, eng, 3)

	assert.Equal(t, content.StateExhausted, result.State)
	assert.Equal(t, testutil.Draft(content.ChannelNewsletter, "v1"), result.Content)
	assert.Equal(t, 7, result.FinalScore)
	assert.Equal(t, 1, result.Iterations)
	assert.Len(t, result.RefinementHistory, 2)
}

func TestChannelController_RefineFailure(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelLinkedIn,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelLinkedIn, "v0")}},
		Judges:    []testutil.Step{{Verdict: testutil.Fail(5)}},
		Refines:   []testutil.Step{{Err: errors.New("refiner down")}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateFailed, result.State)
	assert.Equal(t, testutil.Draft(content.ChannelLinkedIn, "v0"), result.Content)
	assert.Equal(t, 5, result.FinalScore)
	assert.False(t, result.Passed)
	assert.Equal(t, 0, result.Iterations)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageRefine, result.Errors[0].Stage)
}

func TestChannelController_OutOfRangeVerdictIsJudgeFailure(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelLinkedIn,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelLinkedIn, "v0")}},
		Judges:    []testutil.Step{{Verdict: content.Verdict{Score: 12, Passes: true}}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateFailed, result.State)
	assert.Empty(t, result.JudgeHistory)
}

func TestChannelController_RecoversPanic(t *testing.T) {
	eng := &testutil.ScriptedEngine{
		Channel:   content.ChannelBlog,
		Generates: []testutil.Step{{Content: testutil.Draft(content.ChannelBlog, "v0")}},
		Judges:    []testutil.Step{{Panic: "nil map write"}},
	}

	result := runController(t, eng, 2)

	assert.Equal(t, content.StateFailed, result.State)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageEngine, result.Errors[0].Stage)
	assert.Contains(t, result.Errors[0].Message, "nil map write")
}

func TestChannelController_FactoryFailure(t *testing.T) {
	factory := func(ch content.Channel, _ []content.Example) (engine.Engine, error) {
		return nil, errors.New("no credentials")
	}
	ctrl := NewChannelController(content.ChannelBlog, factory, 2)

	result := ctrl.Run(context.Background(), ChannelInput{Topic: "t"})

	assert.Equal(t, content.StateFailed, result.State)
	assert.Nil(t, result.Content)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageEngine, result.Errors[0].Stage)
}

func TestChannelController_CancelledContext(t *testing.T) {
	eng := testutil.Passing(content.ChannelLinkedIn, 9)
	factory := testutil.Factory(map[content.Channel]*testutil.ScriptedEngine{content.ChannelLinkedIn: eng})
	ctrl := NewChannelController(content.ChannelLinkedIn, factory, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := ctrl.Run(ctx, ChannelInput{Topic: "t"})

	assert.Equal(t, content.StateFailed, result.State)
	assert.Equal(t, 0, eng.Calls().Generate)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, content.StageGenerate, result.Errors[0].Stage)
}
