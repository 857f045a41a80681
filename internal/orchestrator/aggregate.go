package orchestrator

import (
	"fmt"

	"github.com/dyluth/quill/pkg/content"
)

// Pricing is the USD cost per million tokens.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// EstimateCost splits total tokens 70/30 between input and output rates,
// truncating each share to whole tokens.
func EstimateCost(totalTokens int, p Pricing) float64 {
	input := totalTokens * 7 / 10
	output := totalTokens * 3 / 10
	return float64(input)/1e6*p.InputPerMillion + float64(output)/1e6*p.OutputPerMillion
}

// Aggregate computes the run summary from every channel result. It is pure and
// reads nothing but its arguments. Corrupt input yields an AggregationError.
func Aggregate(results []*content.ChannelResult, p Pricing) (summary *content.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary = nil
			err = &content.AggregationError{Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	s := &content.Summary{TotalChannels: len(results)}
	scoreSum := 0

	for i, r := range results {
		if r == nil {
			return nil, &content.AggregationError{Reason: fmt.Sprintf("result %d is nil", i)}
		}
		if r.Metrics.TokensUsed < 0 || r.Metrics.APICalls < 0 {
			return nil, &content.AggregationError{Reason: fmt.Sprintf("%s: negative metrics", r.Channel)}
		}
		if r.FinalScore < 0 || r.FinalScore > 10 {
			return nil, &content.AggregationError{Reason: fmt.Sprintf("%s: score %d out of range", r.Channel, r.FinalScore)}
		}

		s.TotalTokens += r.Metrics.TokensUsed
		s.TotalAPICalls += r.Metrics.APICalls
		scoreSum += r.FinalScore

		switch {
		case r.Passed:
			s.ChannelsPassed++
		default:
			s.ChannelsFailed++
		}
		if len(r.Errors) > 0 {
			s.ChannelsErrored++
		}
	}

	if s.TotalChannels > 0 {
		s.AverageScore = float64(scoreSum) / float64(s.TotalChannels)
		s.PassRate = float64(s.ChannelsPassed) / float64(s.TotalChannels)
	}
	s.EstimatedCost = EstimateCost(s.TotalTokens, p)

	return s, nil
}
