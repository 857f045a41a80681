package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
)

type eventFormatter interface {
	FormatChannel(e *blackboard.ChannelEvent) error
	FormatRun(e *blackboard.RunEvent) error
	FormatError(err error) error
}

func newFormatter(format OutputFormat, w io.Writer) (eventFormatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatChannel(e *blackboard.ChannelEvent) error {
	icon, label := channelStateLabel(e.State)
	_, err := fmt.Fprintf(f.writer, "[%s] %s %s %s: topic=%s score=%d/10 iterations=%d run=%s\n",
		stamp(e.TimestampMs), icon, e.Channel.DisplayName(), label,
		e.Topic, e.Score, e.Iterations, shortID(e.RunID))
	return err
}

func (f *defaultFormatter) FormatRun(e *blackboard.RunEvent) error {
	icon, label := "🎉", "Run completed"
	if e.Status == content.RunFailed {
		icon, label = "💥", "Run failed"
	} else if e.Errors > 0 {
		icon, label = "⚠️ ", "Run completed with errors"
	}

	line := fmt.Sprintf("[%s] %s %s: topic=%s thread=%s", stamp(e.TimestampMs), icon, label, e.Topic, e.ThreadID)
	if e.Summary != nil {
		line += fmt.Sprintf(" passed=%d/%d avg=%.1f cost=$%.4f",
			e.Summary.ChannelsPassed, e.Summary.TotalChannels, e.Summary.AverageScore, e.Summary.EstimatedCost)
	}
	if e.Errors > 0 {
		line += fmt.Sprintf(" errors=%d", e.Errors)
	}
	_, err := fmt.Fprintln(f.writer, line)
	return err
}

func (f *defaultFormatter) FormatError(err error) error {
	_, werr := fmt.Fprintf(f.writer, "⚠️  %v\n", err)
	return werr
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatChannel(e *blackboard.ChannelEvent) error {
	return f.write("channel_completed", e)
}

func (f *jsonFormatter) FormatRun(e *blackboard.RunEvent) error {
	return f.write("run_completed", e)
}

func (f *jsonFormatter) FormatError(err error) error {
	return f.write("error", map[string]string{"message": err.Error()})
}

// write emits {"event": name, "data": v} on one line.
func (f *jsonFormatter) write(name string, v interface{}) error {
	data, err := json.Marshal(map[string]interface{}{
		"event": name,
		"data":  v,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}

func channelStateLabel(s content.TerminalState) (string, string) {
	switch s {
	case content.StatePassed:
		return "✅", "passed"
	case content.StateExhausted:
		return "🔁", "exhausted refinements"
	case content.StateFailed:
		return "❌", "failed"
	default:
		return "•", string(s)
	}
}

func stamp(ms int64) string {
	if ms == 0 {
		return "--:--:--"
	}
	return time.UnixMilli(ms).Format("15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
