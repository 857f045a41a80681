package orchestrator

import (
	"time"

	"github.com/dyluth/quill/internal/engine"
	"github.com/dyluth/quill/pkg/content"
)

// channelPhase is the controller's position in the generate/judge/refine loop.
type channelPhase string

const (
	phaseLoading    channelPhase = "loading"
	phaseGenerating channelPhase = "generating"
	phaseJudging    channelPhase = "judging"
	phaseRefining   channelPhase = "refining"
	phaseFinalizing channelPhase = "finalizing"
	phaseDone       channelPhase = "done"
)

// channelRunState is owned by exactly one controller invocation. It is seeded
// from read-only inputs and never shared with another goroutine; the only thing
// that leaves it is the snapshot built by finalize.
type channelRunState struct {
	channel       content.Channel
	topic         string
	phase         channelPhase
	current       content.Content // latest content, possibly not yet judged
	judged        content.Content // the content the last verdict scored
	judgedAt      int             // iteration of judged
	iteration     int
	maxIterations int
	judgeHistory  []content.Verdict
	refinements   []content.RefinementRecord
	terminal      content.TerminalState
	metrics       content.Metrics
	errors        []content.ErrorRecord
	model         string
	startedAt     time.Time
}

func newChannelRunState(ch content.Channel, topic string, maxIterations int) *channelRunState {
	return &channelRunState{
		channel:       ch,
		topic:         topic,
		phase:         phaseLoading,
		maxIterations: maxIterations,
		terminal:      content.StateUnfinished,
		startedAt:     time.Now().UTC(),
	}
}

func (s *channelRunState) addUsage(u engine.Usage) {
	s.metrics.TokensUsed += u.Tokens
	s.metrics.APICalls += u.Calls
}

func (s *channelRunState) recordError(stage content.Stage, err error) {
	s.errors = append(s.errors, content.NewErrorRecord(stage, s.channel, err))
}

// recordVerdict appends v and pins the content it judged.
func (s *channelRunState) recordVerdict(v content.Verdict) {
	s.judgeHistory = append(s.judgeHistory, v)
	s.judged = s.current
	s.judgedAt = s.iteration
}

func (s *channelRunState) lastVerdict() (content.Verdict, bool) {
	if len(s.judgeHistory) == 0 {
		return content.Verdict{}, false
	}
	return s.judgeHistory[len(s.judgeHistory)-1], true
}

// applyRefinement swaps in the refined content and records the verdict that
// triggered it. The iteration counter moves once per refinement.
func (s *channelRunState) applyRefinement(refined content.Content, trigger content.Verdict) {
	s.current = refined
	s.iteration++
	s.refinements = append(s.refinements, content.RefinementRecord{
		Iteration: s.iteration,
		Score:     trigger.Score,
		Feedback:  trigger.Feedback,
	})
}

// finalize builds the immutable result. When any verdict exists the result
// carries the content that verdict judged and its iteration, so score, content
// and iteration count always match. A refinement that was never judged stays
// in the refinement history only.
func (s *channelRunState) finalize(state content.TerminalState) *content.ChannelResult {
	s.phase = phaseFinalizing
	s.terminal = state

	completed := time.Now().UTC()
	s.metrics.GenerationTime = completed.Sub(s.startedAt)

	result := &content.ChannelResult{
		Channel:           s.channel,
		Topic:             s.topic,
		State:             s.terminal,
		Iterations:        s.iteration,
		JudgeHistory:      append([]content.Verdict(nil), s.judgeHistory...),
		RefinementHistory: append([]content.RefinementRecord(nil), s.refinements...),
		Metrics:           s.metrics,
		Model:             s.model,
		Errors:            append([]content.ErrorRecord(nil), s.errors...),
		StartedAt:         s.startedAt,
		CompletedAt:       completed,
	}

	if v, ok := s.lastVerdict(); ok {
		result.Content = s.judged
		result.Iterations = s.judgedAt
		result.FinalScore = v.Score
		result.Passed = v.Passes && state == content.StatePassed
		result.FinalFeedback = v.Feedback
		result.RedFlags = append([]string(nil), v.RedFlags...)
	} else {
		result.Content = s.current
	}
	if result.Content != nil {
		result.Content = result.Content.Clone()
	}

	s.phase = phaseDone
	return result
}
