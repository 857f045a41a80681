package orchestrator

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/dyluth/quill/internal/engine"
	"github.com/dyluth/quill/pkg/content"
)

// ChannelInput is the read-only data a controller is seeded with.
type ChannelInput struct {
	Topic     string
	Documents content.Documents
	Examples  []content.Example
}

// ChannelController drives one channel through generate → judge → refine
// until the judge passes it or the refinement ceiling is reached.
type ChannelController struct {
	channel       content.Channel
	factory       engine.Factory
	maxIterations int
}

// NewChannelController creates a controller. maxIterations is the number of
// refinements allowed; 0 means generate and judge exactly once.
func NewChannelController(ch content.Channel, factory engine.Factory, maxIterations int) *ChannelController {
	if maxIterations < 0 {
		maxIterations = 0
	}
	return &ChannelController{
		channel:       ch,
		factory:       factory,
		maxIterations: maxIterations,
	}
}

// Run executes the loop and always returns a result. Engine failures, panics
// included, end the channel in the failed or exhausted state instead of
// propagating to the caller.
func (c *ChannelController) Run(ctx context.Context, in ChannelInput) (result *content.ChannelResult) {
	s := newChannelRunState(c.channel, in.Topic, c.maxIterations)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Controller:%s] Recovered panic in phase %s: %v\n%s", c.channel, s.phase, r, debug.Stack())
			s.recordError(content.StageEngine, fmt.Errorf("panic during %s: %v", s.phase, r))
			result = s.finalize(content.StateFailed)
		}
	}()

	eng, err := c.factory(c.channel, in.Examples)
	if err != nil {
		log.Printf("[Controller:%s] Failed to build content engine: %v", c.channel, err)
		s.recordError(content.StageEngine, err)
		return s.finalize(content.StateFailed)
	}
	s.model = eng.Model()

	s.phase = phaseGenerating
	draft, usage, err := c.generate(ctx, eng, in)
	s.addUsage(usage)
	if err != nil {
		log.Printf("[Controller:%s] Generation failed: %v", c.channel, err)
		s.recordError(content.StageGenerate, err)
		return s.finalize(content.StateFailed)
	}
	s.current = draft

	for {
		s.phase = phaseJudging
		verdict, usage, err := c.judge(ctx, eng, s.current)
		s.addUsage(usage)
		if err != nil {
			s.recordError(content.StageJudge, err)
			if _, judgedBefore := s.lastVerdict(); judgedBefore {
				log.Printf("[Controller:%s] Judge failed after %d refinement(s), keeping last judged content: %v",
					c.channel, s.iteration, err)
				return s.finalize(content.StateExhausted)
			}
			log.Printf("[Controller:%s] Judge failed before any verdict: %v", c.channel, err)
			return s.finalize(content.StateFailed)
		}
		s.recordVerdict(verdict)

		log.Printf("[Controller:%s] Verdict %d/10 (passes=%v) at iteration %d/%d",
			c.channel, verdict.Score, verdict.Passes, s.iteration, s.maxIterations)

		if verdict.Passes {
			return s.finalize(content.StatePassed)
		}
		if s.iteration >= s.maxIterations {
			log.Printf("[Controller:%s] Refinement ceiling (%d) reached, finalizing with score %d",
				c.channel, s.maxIterations, verdict.Score)
			return s.finalize(content.StateExhausted)
		}

		s.phase = phaseRefining
		refined, usage, err := c.refine(ctx, eng, s.current, verdict)
		s.addUsage(usage)
		if err != nil {
			log.Printf("[Controller:%s] Refinement %d failed: %v", c.channel, s.iteration+1, err)
			s.recordError(content.StageRefine, err)
			return s.finalize(content.StateFailed)
		}
		s.applyRefinement(refined, verdict)
	}
}

// The wrappers below turn a cancelled context into a failure of the step
// that was about to run.

func (c *ChannelController) generate(ctx context.Context, eng engine.Engine, in ChannelInput) (content.Content, engine.Usage, error) {
	if err := c.checkContext(ctx, content.StageGenerate); err != nil {
		return nil, engine.Usage{}, err
	}
	draft, usage, err := eng.Generate(ctx, in.Topic, in.Documents)
	if err != nil {
		return nil, usage, err
	}
	return draft, usage, c.checkShape(content.StageGenerate, draft)
}

func (c *ChannelController) judge(ctx context.Context, eng engine.Engine, current content.Content) (content.Verdict, engine.Usage, error) {
	if err := c.checkContext(ctx, content.StageJudge); err != nil {
		return content.Verdict{}, engine.Usage{}, err
	}
	v, usage, err := eng.Judge(ctx, current)
	if err != nil {
		return v, usage, err
	}
	if verr := v.Validate(); verr != nil {
		return content.Verdict{}, usage, &content.StageError{Stage: content.StageJudge, Channel: c.channel, Err: verr}
	}
	return v, usage, nil
}

func (c *ChannelController) refine(ctx context.Context, eng engine.Engine, current content.Content, v content.Verdict) (content.Content, engine.Usage, error) {
	if err := c.checkContext(ctx, content.StageRefine); err != nil {
		return nil, engine.Usage{}, err
	}
	refined, usage, err := eng.Refine(ctx, current, v)
	if err != nil {
		return nil, usage, err
	}
	return refined, usage, c.checkShape(content.StageRefine, refined)
}

// checkShape rejects engine output that is missing or tagged for another channel.
func (c *ChannelController) checkShape(stage content.Stage, out content.Content) error {
	if out != nil && out.Channel() == c.channel {
		return nil
	}
	reason := "engine returned no content"
	if out != nil {
		reason = fmt.Sprintf("engine returned %s content", out.Channel())
	}
	return &content.StageError{
		Stage:   stage,
		Channel: c.channel,
		Err:     &content.ValidationError{Channel: c.channel, Reason: reason},
	}
}

func (c *ChannelController) checkContext(ctx context.Context, stage content.Stage) error {
	if err := ctx.Err(); err != nil {
		return &content.StageError{Stage: stage, Channel: c.channel, Err: err}
	}
	return nil
}
