package content

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunPhase is the step a workflow run is in.
type RunPhase string

const (
	PhaseParsing     RunPhase = "parsing"
	PhaseGenerating  RunPhase = "generating"
	PhaseAggregating RunPhase = "aggregating"
	PhaseSaving      RunPhase = "saving"
	PhaseCompleted   RunPhase = "completed"
	PhaseError       RunPhase = "error"
)

// Summary is the aggregate view over every channel of a run.
type Summary struct {
	TotalChannels   int     `json:"total_channels"`
	ChannelsPassed  int     `json:"channels_passed"`
	ChannelsFailed  int     `json:"channels_failed"`
	ChannelsErrored int     `json:"channels_errored"`
	TotalTokens     int     `json:"total_tokens"`
	TotalAPICalls   int     `json:"total_api_calls"`
	EstimatedCost   float64 `json:"estimated_cost_usd"`
	AverageScore    float64 `json:"average_score"`
	PassRate        float64 `json:"pass_rate"`
}

// RunRecord is an immutable snapshot of a workflow run, suitable for persistence.
type RunRecord struct {
	ID          string                     `json:"id"`
	ThreadID    string                     `json:"thread_id"`
	Topic       *Topic                     `json:"topic,omitempty"`
	TopicName   string                     `json:"topic_name"`
	Channels    []Channel                  `json:"channels"`
	Results     map[Channel]*ChannelResult `json:"results"`
	Summary     *Summary                   `json:"summary,omitempty"`
	Status      RunStatus                  `json:"status"`
	Phase       RunPhase                   `json:"phase"`
	Errors      []ErrorRecord              `json:"errors"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt time.Time                  `json:"completed_at,omitempty"`
}

// OrderedResults returns the results in canonical channel order.
func (r *RunRecord) OrderedResults() []*ChannelResult {
	out := make([]*ChannelResult, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res)
	}
	SortResults(out)
	return out
}

// Succeeded reports whether every requested channel finalized without error
// and the run itself recorded none.
func (r *RunRecord) Succeeded() bool {
	if r.Status != RunCompleted || len(r.Errors) > 0 {
		return false
	}
	for _, ch := range r.Channels {
		res, ok := r.Results[ch]
		if !ok || !res.Succeeded() {
			return false
		}
	}
	return true
}

// NewThreadID builds the human-readable run label <topic>_<YYYYMMDD_HHMMSS>.
func NewThreadID(topic string, at time.Time) string {
	slug := strings.ToLower(strings.Join(strings.Fields(topic), "_"))
	if slug == "" {
		slug = "topic"
	}
	return fmt.Sprintf("%s_%s", slug, at.Format("20060102_150405"))
}

// SortResults orders results by canonical channel order.
func SortResults(results []*ChannelResult) {
	rank := make(map[Channel]int)
	for i, ch := range AllChannels() {
		rank[ch] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		ri, iok := rank[results[i].Channel]
		rj, jok := rank[results[j].Channel]
		if iok && jok {
			return ri < rj
		}
		if iok != jok {
			return iok
		}
		return results[i].Channel < results[j].Channel
	})
}
