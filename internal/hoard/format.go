package hoard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
)

// FormatTable writes runs as a table to w and returns the number of rows.
// Columns: ID, TOPIC, STATUS, PASSED, AVG, AGE.
func FormatTable(w io.Writer, runs []*blackboard.Run, instanceName string) int {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Runs for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-24s %-10s %-7s %-6s %s\n",
		"ID", "TOPIC", "STATUS", "PASSED", "AVG", "AGE")
	fmt.Fprintf(w, "%-10s %-24s %-10s %-7s %-6s %s\n",
		"----------", "------------------------", "----------", "-------", "------", "--------")

	for _, r := range runs {
		fmt.Fprintf(w, "%-10s %-24s %-10s %-7s %-6s %s\n",
			formatID(r.ID),
			formatTopic(r.Topic),
			formatStatus(r),
			formatPassed(r),
			formatAverage(r.Summary),
			formatTimestamp(r.StartedAtMs),
		)
	}

	noun := "run"
	if len(runs) != 1 {
		noun = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), noun)

	return len(runs)
}

// FormatJSONL writes runs as line-delimited JSON to w, one run per line.
func FormatJSONL(w io.Writer, runs []*blackboard.Run) error {
	for _, run := range runs {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatID truncates a run ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTopic(topic string) string {
	if len(topic) > 24 {
		return topic[:21] + "..."
	}
	return topic
}

// formatStatus flags completed runs that still logged errors.
func formatStatus(r *blackboard.Run) string {
	if r.Status == content.RunCompleted && len(r.Errors) > 0 {
		return "completed!"
	}
	return string(r.Status)
}

// formatPassed shows passed/total channels, or "-" without a summary.
func formatPassed(r *blackboard.Run) string {
	if r.Summary == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d", r.Summary.ChannelsPassed, r.Summary.TotalChannels)
}

func formatAverage(s *content.Summary) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", s.AverageScore)
}

// formatTimestamp formats Unix timestamp in milliseconds as relative time
// like "2m ago" or "1h ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Since(time.UnixMilli(timestampMs))

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
