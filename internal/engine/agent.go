package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/quill/internal/llm"
	"github.com/dyluth/quill/pkg/content"
)

// AgentConfig tunes the LLM calls an Agent makes.
type AgentConfig struct {
	Temperature      float64
	MaxOutputTokens  int
	QualityThreshold float64
}

// Agent is the LLM-backed Engine for one channel.
type Agent struct {
	channel  content.Channel
	client   llm.Client
	cfg      AgentConfig
	examples []content.Example
	prompts  *prompts
}

// NewAgent creates an agent for ch. The client is expected to apply retries.
func NewAgent(ch content.Channel, client llm.Client, cfg AgentConfig, examples []content.Example) (*Agent, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("unknown channel %q", ch)
	}
	if client == nil {
		return nil, fmt.Errorf("agent for %s: llm client is required", ch)
	}
	for i, ex := range examples {
		if ex.Content == nil || ex.Content.Channel() != ch {
			return nil, fmt.Errorf("agent for %s: example %d is not %s content", ch, i+1, ch)
		}
	}

	log.Printf("[Engine:%s] Initialized with %d example(s), model %s", ch, len(examples), client.Model())

	return &Agent{
		channel:  ch,
		client:   client,
		cfg:      cfg,
		examples: examples,
		prompts:  newPrompts(ch, cfg.QualityThreshold),
	}, nil
}

// NewFactory returns a Factory that builds agents sharing one client.
func NewFactory(client llm.Client, cfg AgentConfig) Factory {
	return func(ch content.Channel, examples []content.Example) (Engine, error) {
		return NewAgent(ch, client, cfg, examples)
	}
}

func (a *Agent) Model() string { return a.client.Model() }

func (a *Agent) request(op llm.Operation, user string) llm.Request {
	return llm.Request{
		Operation:   op,
		Channel:     a.channel,
		System:      a.prompts.base,
		User:        user,
		JSON:        true,
		Schema:      a.responseSchema(op),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxOutputTokens,
	}
}

func (a *Agent) responseSchema(op llm.Operation) *llm.Schema {
	if op == llm.OpJudge {
		return llm.VerdictSchema()
	}
	return llm.ContentSchema(a.channel)
}

func (a *Agent) stageError(stage content.Stage, err error) error {
	return &content.StageError{Stage: stage, Channel: a.channel, Err: err}
}

// Generate produces a first draft.
func (a *Agent) Generate(ctx context.Context, topic string, docs content.Documents) (content.Content, Usage, error) {
	raw, err := a.client.Complete(ctx, a.request(llm.OpGenerate, a.prompts.Generate(topic, docs, a.examples)))
	if err != nil {
		return nil, Usage{}, a.stageError(content.StageGenerate, err)
	}

	c, payload, err := ParseContentResponse(a.channel, raw)
	if err != nil {
		return nil, Usage{Calls: 1}, a.stageError(content.StageGenerate, err)
	}
	return c, Usage{Tokens: EstimateTokens(payload), Calls: 1}, nil
}

// Judge scores content.
func (a *Agent) Judge(ctx context.Context, c content.Content) (content.Verdict, Usage, error) {
	raw, err := a.client.Complete(ctx, a.request(llm.OpJudge, a.prompts.Judge(c)))
	if err != nil {
		return content.Verdict{}, Usage{}, a.stageError(content.StageJudge, err)
	}

	v, payload, err := ParseVerdictResponse(raw)
	if err != nil {
		return content.Verdict{}, Usage{Calls: 1}, a.stageError(content.StageJudge, err)
	}
	return v, Usage{Tokens: EstimateTokens(payload), Calls: 1}, nil
}

// Refine revises content using the verdict.
func (a *Agent) Refine(ctx context.Context, c content.Content, v content.Verdict) (content.Content, Usage, error) {
	raw, err := a.client.Complete(ctx, a.request(llm.OpRefine, a.prompts.Refine(c, v)))
	if err != nil {
		return nil, Usage{}, a.stageError(content.StageRefine, err)
	}

	refined, payload, err := ParseContentResponse(a.channel, raw)
	if err != nil {
		return nil, Usage{Calls: 1}, a.stageError(content.StageRefine, err)
	}
	return refined, Usage{Tokens: EstimateTokens(payload), Calls: 1}, nil
}
