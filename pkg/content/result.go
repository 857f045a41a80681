package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChannelResult is the snapshot a channel controller produces when its loop
// terminates. It is created once and never mutated afterwards; use Clone to
// hand out copies.
type ChannelResult struct {
	Channel           Channel            `json:"channel"`
	Topic             string             `json:"topic"`
	Content           Content            `json:"-"`
	FinalScore        int                `json:"final_score"`
	Passed            bool               `json:"passed"`
	State             TerminalState      `json:"state"`
	Iterations        int                `json:"iterations"`
	JudgeHistory      []Verdict          `json:"judge_history"`
	RefinementHistory []RefinementRecord `json:"refinement_history"`
	FinalFeedback     Feedback           `json:"final_feedback"`
	RedFlags          []string           `json:"red_flags"`
	Metrics           Metrics            `json:"metrics"`
	Model             string             `json:"model"`
	Errors            []ErrorRecord      `json:"errors"`
	StartedAt         time.Time          `json:"started_at"`
	CompletedAt       time.Time          `json:"completed_at"`
}

// Succeeded reports whether the channel finalized without any recorded error.
func (r *ChannelResult) Succeeded() bool {
	return r.Content != nil && len(r.Errors) == 0 &&
		(r.State == StatePassed || r.State == StateExhausted)
}

// LastVerdict returns the most recent verdict, if any.
func (r *ChannelResult) LastVerdict() (Verdict, bool) {
	if len(r.JudgeHistory) == 0 {
		return Verdict{}, false
	}
	return r.JudgeHistory[len(r.JudgeHistory)-1], true
}

// Clone returns a deep copy of the result.
func (r *ChannelResult) Clone() *ChannelResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.Content != nil {
		c.Content = r.Content.Clone()
	}
	c.JudgeHistory = append([]Verdict(nil), r.JudgeHistory...)
	c.RefinementHistory = append([]RefinementRecord(nil), r.RefinementHistory...)
	c.RedFlags = append([]string(nil), r.RedFlags...)
	c.Errors = append([]ErrorRecord(nil), r.Errors...)
	return &c
}

type channelResultJSON struct {
	*resultAlias
	Content json.RawMessage `json:"content,omitempty"`
}

type resultAlias ChannelResult

// MarshalJSON includes the content union under "content".
func (r ChannelResult) MarshalJSON() ([]byte, error) {
	alias := resultAlias(r)
	out := channelResultJSON{resultAlias: &alias}
	if r.Content != nil {
		raw, err := json.Marshal(r.Content)
		if err != nil {
			return nil, err
		}
		out.Content = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the content union using the channel tag.
func (r *ChannelResult) UnmarshalJSON(data []byte) error {
	in := channelResultJSON{resultAlias: (*resultAlias)(r)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Content) == 0 || string(in.Content) == "null" {
		r.Content = nil
		return nil
	}
	c, err := ParseContent(r.Channel, in.Content)
	if err != nil {
		return fmt.Errorf("channel result content: %w", err)
	}
	r.Content = c
	return nil
}
