package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dyluth/quill/pkg/content"
)

// typography maps characters models like to emit onto plain ASCII.
var typography = strings.NewReplacer(
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"—", "-", // em dash
	"–", "-", // en dash
	"…", "...",
)

// CleanResponse strips markdown fences, invalid UTF-8 and typographic
// punctuation from a raw model response.
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)
	s = strings.ToValidUTF8(s, "")
	return typography.Replace(s)
}

// decodeObject parses a cleaned response into a generic JSON object. Curly
// double quotes are first treated as quote characters inside strings and, if
// that fails, as JSON delimiters.
func decodeObject(cleaned string) (map[string]interface{}, error) {
	var out map[string]interface{}
	escaped := strings.NewReplacer("“", `\"`, "”", `\"`).Replace(cleaned)
	err := json.Unmarshal([]byte(escaped), &out)
	if err == nil && out != nil {
		return out, nil
	}
	plain := strings.NewReplacer("“", `"`, "”", `"`).Replace(cleaned)
	if perr := json.Unmarshal([]byte(plain), &out); perr == nil && out != nil {
		return out, nil
	}
	if err == nil {
		err = fmt.Errorf("response is not a JSON object")
	}
	return nil, fmt.Errorf("failed to parse JSON response: %w", err)
}

// ParseContentResponse turns a raw model response into validated content.
// Extra fields are dropped before strict validation.
func ParseContentResponse(ch content.Channel, raw string) (content.Content, []byte, error) {
	obj, err := decodeObject(CleanResponse(raw))
	if err != nil {
		return nil, nil, &content.ValidationError{Channel: ch, Reason: "unparseable response", Err: err}
	}

	sanitized, err := json.Marshal(content.Sanitize(ch, obj))
	if err != nil {
		return nil, nil, &content.ValidationError{Channel: ch, Reason: "re-encode failed", Err: err}
	}

	c, err := content.ParseContent(ch, sanitized)
	if err != nil {
		return nil, nil, err
	}
	return c, sanitized, nil
}

type verdictWire struct {
	Score          *json.Number           `json:"score"`
	Passes         bool                   `json:"passes_quality"`
	Feedback       content.Feedback       `json:"feedback"`
	RedFlags       []string               `json:"red_flags"`
	CriteriaScores map[string]json.Number `json:"criteria_scores,omitempty"`
}

// ParseVerdictResponse turns a raw judge response into a verdict.
// Fractional scores are rounded; a missing or out-of-range score is an error.
func ParseVerdictResponse(raw string) (content.Verdict, []byte, error) {
	obj, err := decodeObject(CleanResponse(raw))
	if err != nil {
		return content.Verdict{}, nil, err
	}
	normalized, err := json.Marshal(obj)
	if err != nil {
		return content.Verdict{}, nil, err
	}

	var wire verdictWire
	if err := json.Unmarshal(normalized, &wire); err != nil {
		return content.Verdict{}, nil, fmt.Errorf("invalid verdict: %w", err)
	}
	if wire.Score == nil {
		return content.Verdict{}, nil, fmt.Errorf("invalid verdict: missing score")
	}

	score, err := roundNumber(*wire.Score)
	if err != nil {
		return content.Verdict{}, nil, fmt.Errorf("invalid verdict score: %w", err)
	}

	v := content.Verdict{
		Score:    score,
		Passes:   wire.Passes,
		Feedback: wire.Feedback,
		RedFlags: wire.RedFlags,
	}
	if v.RedFlags == nil {
		v.RedFlags = []string{}
	}
	if len(wire.CriteriaScores) > 0 {
		v.CriteriaScores = make(map[string]int, len(wire.CriteriaScores))
		for name, n := range wire.CriteriaScores {
			if s, err := roundNumber(n); err == nil {
				v.CriteriaScores[name] = s
			}
		}
	}
	if err := v.Validate(); err != nil {
		return content.Verdict{}, nil, fmt.Errorf("invalid verdict: %w", err)
	}
	return v, normalized, nil
}

func roundNumber(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}
