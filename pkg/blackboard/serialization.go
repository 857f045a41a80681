package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/quill/pkg/content"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Scalar fields get their own hash field so they can be read with HGET; lists
// and nested structures are JSON-encoded into a single field.

// RunToHash converts a Run to a Redis hash.
func RunToHash(r *Run) (map[string]interface{}, error) {
	channelsJSON, err := json.Marshal(r.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal channels: %w", err)
	}

	errorsJSON, err := json.Marshal(r.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal errors: %w", err)
	}

	summaryJSON := ""
	if r.Summary != nil {
		data, err := json.Marshal(r.Summary)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal summary: %w", err)
		}
		summaryJSON = string(data)
	}

	return map[string]interface{}{
		"id":              r.ID,
		"thread_id":       r.ThreadID,
		"topic":           r.Topic,
		"status":          string(r.Status),
		"phase":           string(r.Phase),
		"channels":        string(channelsJSON),
		"summary":         summaryJSON,
		"errors":          string(errorsJSON),
		"started_at_ms":   r.StartedAtMs,
		"completed_at_ms": r.CompletedAtMs,
	}, nil
}

// HashToRun converts a Redis hash back to a Run.
func HashToRun(hash map[string]string) (*Run, error) {
	var channels []content.Channel
	if raw := hash["channels"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &channels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channels: %w", err)
		}
	}
	if channels == nil {
		channels = []content.Channel{}
	}

	var errs []content.ErrorRecord
	if raw := hash["errors"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &errs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
		}
	}
	if errs == nil {
		errs = []content.ErrorRecord{}
	}

	var summary *content.Summary
	if raw := hash["summary"]; raw != "" {
		summary = &content.Summary{}
		if err := json.Unmarshal([]byte(raw), summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}

	startedAtMs, err := strconv.ParseInt(hash["started_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at_ms field: %w", err)
	}
	completedAtMs, _ := strconv.ParseInt(hash["completed_at_ms"], 10, 64)

	return &Run{
		ID:            hash["id"],
		ThreadID:      hash["thread_id"],
		Topic:         hash["topic"],
		Status:        content.RunStatus(hash["status"]),
		Phase:         content.RunPhase(hash["phase"]),
		Channels:      channels,
		Summary:       summary,
		Errors:        errs,
		StartedAtMs:   startedAtMs,
		CompletedAtMs: completedAtMs,
	}, nil
}

// ChannelResultToHash converts a channel result to a Redis hash. The full
// result, content included, lives in the "result" field.
func ChannelResultToHash(runID string, r *content.ChannelResult) (map[string]interface{}, error) {
	resultJSON, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal channel result: %w", err)
	}

	return map[string]interface{}{
		"run_id":          runID,
		"channel":         string(r.Channel),
		"topic":           r.Topic,
		"state":           string(r.State),
		"final_score":     r.FinalScore,
		"passed":          r.Passed,
		"iterations":      r.Iterations,
		"completed_at_ms": r.CompletedAt.UnixMilli(),
		"result":          string(resultJSON),
	}, nil
}

// HashToChannelResult converts a Redis hash back to a channel result.
func HashToChannelResult(hash map[string]string) (*content.ChannelResult, error) {
	raw := hash["result"]
	if raw == "" {
		return nil, fmt.Errorf("missing result field")
	}

	var r content.ChannelResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel result: %w", err)
	}
	return &r, nil
}
