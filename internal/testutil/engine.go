// Package testutil provides fakes and fixtures shared by quill's tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/quill/internal/engine"
	"github.com/dyluth/quill/pkg/content"
)

// TokensPerCall is the usage a scripted engine reports for every successful call.
const TokensPerCall = 100

// Step is one scripted engine response. Exactly one of the fields is used:
// Panic, then Err, then Content or Verdict.
type Step struct {
	Content content.Content
	Verdict content.Verdict
	Err     error
	Panic   string
}

// Calls counts how often each engine operation ran.
type Calls struct {
	Generate int
	Judge    int
	Refine   int
}

// ScriptedEngine replays scripted steps. When a script runs out the last
// step repeats.
type ScriptedEngine struct {
	Channel   content.Channel
	Generates []Step
	Judges    []Step
	Refines   []Step
	Delay     time.Duration

	mu     sync.Mutex
	calls  Calls
	judged []content.Content
}

// Calls returns the per-operation call counts.
func (e *ScriptedEngine) Calls() Calls {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Judged returns the content passed to each Judge call, in order.
func (e *ScriptedEngine) Judged() []content.Content {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]content.Content(nil), e.judged...)
}

func (e *ScriptedEngine) Model() string { return "scripted" }

func (e *ScriptedEngine) Generate(ctx context.Context, topic string, docs content.Documents) (content.Content, engine.Usage, error) {
	e.mu.Lock()
	step := pick(e.Generates, e.calls.Generate)
	e.calls.Generate++
	e.mu.Unlock()

	if err := e.play(ctx, step); err != nil {
		return nil, engine.Usage{}, &content.StageError{Stage: content.StageGenerate, Channel: e.Channel, Err: err}
	}
	return step.Content, engine.Usage{Tokens: TokensPerCall, Calls: 1}, nil
}

func (e *ScriptedEngine) Judge(ctx context.Context, c content.Content) (content.Verdict, engine.Usage, error) {
	e.mu.Lock()
	step := pick(e.Judges, e.calls.Judge)
	e.calls.Judge++
	e.judged = append(e.judged, c)
	e.mu.Unlock()

	if err := e.play(ctx, step); err != nil {
		return content.Verdict{}, engine.Usage{}, &content.StageError{Stage: content.StageJudge, Channel: e.Channel, Err: err}
	}
	return step.Verdict, engine.Usage{Tokens: TokensPerCall, Calls: 1}, nil
}

func (e *ScriptedEngine) Refine(ctx context.Context, c content.Content, v content.Verdict) (content.Content, engine.Usage, error) {
	e.mu.Lock()
	step := pick(e.Refines, e.calls.Refine)
	e.calls.Refine++
	e.mu.Unlock()

	if err := e.play(ctx, step); err != nil {
		return nil, engine.Usage{}, &content.StageError{Stage: content.StageRefine, Channel: e.Channel, Err: err}
	}
	return step.Content, engine.Usage{Tokens: TokensPerCall, Calls: 1}, nil
}

func (e *ScriptedEngine) play(ctx context.Context, step Step) error {
	if e.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.Delay):
		}
	}
	if step.Panic != "" {
		panic(step.Panic)
	}
	return step.Err
}

func pick(steps []Step, i int) Step {
	if len(steps) == 0 {
		return Step{Err: fmt.Errorf("no scripted step")}
	}
	if i >= len(steps) {
		return steps[len(steps)-1]
	}
	return steps[i]
}

// Factory returns an engine.Factory serving the given engines by channel.
func Factory(engines map[content.Channel]*ScriptedEngine) engine.Factory {
	return func(ch content.Channel, _ []content.Example) (engine.Engine, error) {
		e, ok := engines[ch]
		if !ok {
			return nil, fmt.Errorf("no scripted engine for %s", ch)
		}
		e.Channel = ch
		return e, nil
	}
}

// Draft returns valid content for ch whose text carries label.
func Draft(ch content.Channel, label string) content.Content {
	switch ch {
	case content.ChannelLinkedIn:
		return &content.LinkedInPost{Content: label, Hashtags: []string{"Test"}}
	case content.ChannelNewsletter:
		return &content.NewsletterEmail{SubjectLine: label, Body: label + " body"}
	default:
		return &content.BlogPost{Title: label, Content: label + " body"}
	}
}

// Pass is a passing verdict.
func Pass(score int) content.Verdict {
	return content.Verdict{Score: score, Passes: true, RedFlags: []string{}}
}

// Fail is a failing verdict with one weakness.
func Fail(score int) content.Verdict {
	return content.Verdict{
		Score:    score,
		Passes:   false,
		Feedback: content.Feedback{Weaknesses: []string{fmt.Sprintf("scored %d", score)}},
		RedFlags: []string{},
	}
}

// Passing scripts an engine whose first draft passes with score.
func Passing(ch content.Channel, score int) *ScriptedEngine {
	return &ScriptedEngine{
		Channel:   ch,
		Generates: []Step{{Content: Draft(ch, "draft")}},
		Judges:    []Step{{Verdict: Pass(score)}},
	}
}
