package persist

import (
	"encoding/json"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/dyluth/quill/pkg/content"
)

// Checkpoint and summary file names, relative to the topic folder.
const (
	ParsedDocumentsFile = "parsed_documents.json"
	RunSummaryFile      = "run_summary.json"
)

// File is one rendered output, named relative to the output root.
type File struct {
	Name string
	Data []byte
}

// Options controls which renderings are produced.
type Options struct {
	HTML bool
}

// BuildFiles renders every output of a run: the parsed document checkpoint,
// the run summary and per channel JSON, Markdown and optionally HTML.
// Channels without content are skipped with a warning.
func BuildFiles(run *content.RunRecord, opts Options) ([]File, error) {
	topicDir := run.TopicName
	var files []File

	if run.Topic != nil {
		data, err := json.MarshalIndent(run.Topic, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal parsed documents: %w", err)
		}
		files = append(files, File{Name: path.Join(topicDir, ParsedDocumentsFile), Data: data})
	}

	for _, r := range run.OrderedResults() {
		if r.Content == nil {
			log.Printf("[Persist] Warning: %s/%s has no content to save (state: %s)", run.TopicName, r.Channel, r.State)
			continue
		}

		artifact, err := NewArtifact(r)
		if err != nil {
			return nil, err
		}

		data, err := json.MarshalIndent(artifact, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s artifact: %w", r.Channel, err)
		}
		base := path.Join(topicDir, channelFileBase(r.Channel))
		files = append(files, File{Name: base + ".json", Data: data})

		md := RenderMarkdown(artifact)
		files = append(files, File{Name: base + ".md", Data: []byte(md)})

		if opts.HTML {
			html, err := RenderHTML(md)
			if err != nil {
				return nil, fmt.Errorf("failed to render %s HTML: %w", r.Channel, err)
			}
			files = append(files, File{Name: base + ".html", Data: []byte(html)})
		}
	}

	summary, err := json.MarshalIndent(newRunSummary(run), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run summary: %w", err)
	}
	files = append(files, File{Name: path.Join(topicDir, RunSummaryFile), Data: summary})

	return files, nil
}

// runSummary is the run record without document bodies or content.
type runSummary struct {
	ID          string                `json:"id"`
	ThreadID    string                `json:"thread_id"`
	Topic       string                `json:"topic"`
	Status      content.RunStatus     `json:"status"`
	Summary     *content.Summary      `json:"summary,omitempty"`
	Channels    []channelSummary      `json:"channels"`
	Errors      []content.ErrorRecord `json:"errors"`
	StartedAt   string                `json:"started_at"`
	CompletedAt string                `json:"completed_at,omitempty"`
}

type channelSummary struct {
	Channel    content.Channel       `json:"channel"`
	State      content.TerminalState `json:"state"`
	Score      int                   `json:"final_score"`
	Passed     bool                  `json:"passed"`
	Iterations int                   `json:"iterations"`
	Tokens     int                   `json:"tokens_used"`
	APICalls   int                   `json:"api_calls"`
	DurationMs int64                 `json:"duration_ms"`
	Errors     []content.ErrorRecord `json:"errors"`
}

func newRunSummary(run *content.RunRecord) runSummary {
	s := runSummary{
		ID:        run.ID,
		ThreadID:  run.ThreadID,
		Topic:     run.TopicName,
		Status:    run.Status,
		Summary:   run.Summary,
		Errors:    append([]content.ErrorRecord{}, run.Errors...),
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if !run.CompletedAt.IsZero() {
		s.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	for _, r := range run.OrderedResults() {
		s.Channels = append(s.Channels, channelSummary{
			Channel:    r.Channel,
			State:      r.State,
			Score:      r.FinalScore,
			Passed:     r.Passed,
			Iterations: r.Iterations,
			Tokens:     r.Metrics.TokensUsed,
			APICalls:   r.Metrics.APICalls,
			DurationMs: r.Metrics.GenerationTime.Milliseconds(),
			Errors:     append([]content.ErrorRecord{}, r.Errors...),
		})
	}
	return s
}
