package printer

import (
	"fmt"

	"github.com/dyluth/quill/pkg/content"
)

// Topics prints the numbered topic list used for index selection.
func Topics(topics []string) {
	if len(topics) == 0 {
		Warning("No topics found\n")
		return
	}
	fmt.Fprintf(out, "Found %d topic(s):\n", len(topics))
	for i, t := range topics {
		fmt.Fprintf(out, "  %d. %s\n", i+1, t)
	}
}

// RunResults prints the per-channel outcome and totals of one run.
func RunResults(record *content.RunRecord) {
	fmt.Fprintln(out)
	Header(fmt.Sprintf("RESULTS: %s", record.TopicName))
	fmt.Fprintf(out, "Thread: %s\nRun:    %s\n", record.ThreadID, record.ID)

	fmt.Fprintf(out, "\nChannel results:\n")
	for _, ch := range record.Channels {
		r, ok := record.Results[ch]
		if !ok {
			red.Fprintf(out, "  ✗ %s: no result\n", ch.DisplayName())
			continue
		}
		printChannel(r)
	}

	if s := record.Summary; s != nil {
		fmt.Fprintf(out, "\nSummary:\n")
		fmt.Fprintf(out, "  Passed:          %d/%d\n", s.ChannelsPassed, s.TotalChannels)
		fmt.Fprintf(out, "  Average score:   %.1f/10\n", s.AverageScore)
		fmt.Fprintf(out, "  Total tokens:    %d\n", s.TotalTokens)
		fmt.Fprintf(out, "  Total API calls: %d\n", s.TotalAPICalls)
		fmt.Fprintf(out, "  Estimated cost:  $%.4f\n", s.EstimatedCost)
	}

	if len(record.Errors) > 0 {
		red.Fprintf(out, "\nErrors (%d):\n", len(record.Errors))
		for _, e := range record.Errors {
			fmt.Fprintf(out, "  - [%s] %s\n", e.Stage, e.Message)
		}
	}
}

func printChannel(r *content.ChannelResult) {
	line := fmt.Sprintf("%s: %d/10 after %d refinement(s) in %.1fs",
		r.Channel.DisplayName(), r.FinalScore, r.Iterations, r.Metrics.GenerationTime.Seconds())

	switch r.State {
	case content.StatePassed:
		green.Fprintf(out, "  ✓ %s (passed)\n", line)
	case content.StateExhausted:
		yellow.Fprintf(out, "  ~ %s (below threshold)\n", line)
	default:
		red.Fprintf(out, "  ✗ %s (%s)\n", line, r.State)
	}

	for _, e := range r.Errors {
		fmt.Fprintf(out, "      [%s] %s\n", e.Stage, e.Message)
	}
}

// FinalSummary prints the totals across every processed topic.
func FinalSummary(succeeded, failed int) {
	fmt.Fprintln(out)
	Header("FINAL SUMMARY")
	fmt.Fprintf(out, "Total topics processed: %d\n", succeeded+failed)
	green.Fprintf(out, "Successful: %d\n", succeeded)
	if failed > 0 {
		red.Fprintf(out, "Failed: %d\n", failed)
	} else {
		fmt.Fprintf(out, "Failed: 0\n")
	}
}
