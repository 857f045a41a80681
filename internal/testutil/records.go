package testutil

import (
	"time"

	"github.com/dyluth/quill/pkg/content"
	"github.com/google/uuid"
)

// Result returns a finalized channel result for topic.
func Result(ch content.Channel, topic string, score int, passed bool) *content.ChannelResult {
	now := time.Now().UTC()
	state := content.StateExhausted
	if passed {
		state = content.StatePassed
	}
	return &content.ChannelResult{
		Channel:      ch,
		Topic:        topic,
		Content:      Draft(ch, topic),
		FinalScore:   score,
		Passed:       passed,
		State:        state,
		Iterations:   1,
		JudgeHistory: []content.Verdict{{Score: score, Passes: passed}},
		Metrics:      content.Metrics{TokensUsed: 2 * TokensPerCall, APICalls: 2, GenerationTime: time.Second},
		Model:        "scripted",
		StartedAt:    now.Add(-time.Second),
		CompletedAt:  now,
	}
}

// Record builds a completed run record over results, summarised by count.
func Record(topic string, startedAt time.Time, results ...*content.ChannelResult) *content.RunRecord {
	rec := &content.RunRecord{
		ID:          uuid.New().String(),
		ThreadID:    content.NewThreadID(topic, startedAt),
		TopicName:   topic,
		Results:     make(map[content.Channel]*content.ChannelResult, len(results)),
		Status:      content.RunCompleted,
		Phase:       content.PhaseCompleted,
		Errors:      []content.ErrorRecord{},
		StartedAt:   startedAt,
		CompletedAt: startedAt.Add(2 * time.Second),
	}

	summary := &content.Summary{TotalChannels: len(results)}
	total := 0
	for _, r := range results {
		rec.Channels = append(rec.Channels, r.Channel)
		rec.Results[r.Channel] = r
		total += r.FinalScore
		summary.TotalTokens += r.Metrics.TokensUsed
		summary.TotalAPICalls += r.Metrics.APICalls
		if r.Passed {
			summary.ChannelsPassed++
		} else {
			summary.ChannelsFailed++
		}
	}
	if len(results) > 0 {
		summary.AverageScore = float64(total) / float64(len(results))
		summary.PassRate = float64(summary.ChannelsPassed) / float64(len(results))
	}
	rec.Summary = summary
	return rec
}
