// Package persist writes finished runs to their destinations: the local
// output directory, the Redis blackboard and Google Cloud Storage.
package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dyluth/quill/pkg/content"
)

// Metadata describes how an artifact was produced.
type Metadata struct {
	GeneratedAt          time.Time                  `json:"generated_at"`
	Channel              content.Channel            `json:"channel"`
	FinalScore           int                        `json:"final_score"`
	PassedQuality        bool                       `json:"passed_quality"`
	RefinementIterations int                        `json:"refinement_iterations"`
	RefinementHistory    []content.RefinementRecord `json:"refinement_history"`
	FinalFeedback        content.Feedback           `json:"final_feedback"`
	ModelUsed            string                     `json:"model_used"`
}

// Artifact is the on-disk shape of one channel's output. Exactly one of the
// content fields is set, matching Channel.
type Artifact struct {
	Topic        string                   `json:"topic"`
	Channel      content.Channel          `json:"channel"`
	LinkedInPost *content.LinkedInPost    `json:"linkedin_post,omitempty"`
	Newsletter   *content.NewsletterEmail `json:"newsletter,omitempty"`
	BlogPost     *content.BlogPost        `json:"blog_post,omitempty"`
	Metadata     Metadata                 `json:"metadata"`
}

// NewArtifact builds the artifact for r. It fails when r carries no content.
func NewArtifact(r *content.ChannelResult) (*Artifact, error) {
	if r.Content == nil {
		return nil, fmt.Errorf("%s has no content", r.Channel)
	}

	generated := r.CompletedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	a := &Artifact{
		Topic:   r.Topic,
		Channel: r.Channel,
		Metadata: Metadata{
			GeneratedAt:          generated,
			Channel:              r.Channel,
			FinalScore:           r.FinalScore,
			PassedQuality:        r.Passed,
			RefinementIterations: r.Iterations,
			RefinementHistory:    append([]content.RefinementRecord{}, r.RefinementHistory...),
			FinalFeedback:        r.FinalFeedback,
			ModelUsed:            r.Model,
		},
	}

	switch c := r.Content.Clone().(type) {
	case *content.LinkedInPost:
		a.LinkedInPost = c
	case *content.NewsletterEmail:
		a.Newsletter = c
	case *content.BlogPost:
		a.BlogPost = c
	}
	if a.content() == nil || a.content().Channel() != r.Channel {
		return nil, fmt.Errorf("%s result carries %T content", r.Channel, r.Content)
	}
	return a, nil
}

func (a *Artifact) content() content.Content {
	switch {
	case a.LinkedInPost != nil:
		return a.LinkedInPost
	case a.Newsletter != nil:
		return a.Newsletter
	case a.BlogPost != nil:
		return a.BlogPost
	}
	return nil
}

// FromArtifact parses an artifact file back into a channel result carrying
// its content, score, pass flag, iteration count and feedback.
func FromArtifact(data []byte) (*content.ChannelResult, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}
	if !a.Channel.Valid() {
		return nil, fmt.Errorf("artifact has unknown channel %q", a.Channel)
	}

	c := a.content()
	if c == nil {
		return nil, fmt.Errorf("artifact for %s has no content", a.Channel)
	}
	if c.Channel() != a.Channel {
		return nil, fmt.Errorf("artifact channel %s does not match its %s content", a.Channel, c.Channel())
	}

	state := content.StateExhausted
	if a.Metadata.PassedQuality {
		state = content.StatePassed
	}

	return &content.ChannelResult{
		Channel:           a.Channel,
		Topic:             a.Topic,
		Content:           c,
		FinalScore:        a.Metadata.FinalScore,
		Passed:            a.Metadata.PassedQuality,
		State:             state,
		Iterations:        a.Metadata.RefinementIterations,
		RefinementHistory: a.Metadata.RefinementHistory,
		FinalFeedback:     a.Metadata.FinalFeedback,
		Model:             a.Metadata.ModelUsed,
		CompletedAt:       a.Metadata.GeneratedAt,
	}, nil
}
