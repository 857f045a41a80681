package content

import (
	"fmt"
	"strings"
	"time"
)

// Channel identifies a publication target.
type Channel string

const (
	ChannelLinkedIn   Channel = "linkedin"
	ChannelNewsletter Channel = "newsletter"
	ChannelBlog       Channel = "blog"
)

// AllChannels returns every supported channel in canonical order.
func AllChannels() []Channel {
	return []Channel{ChannelLinkedIn, ChannelNewsletter, ChannelBlog}
}

// ParseChannel parses a channel name (case-insensitive).
func ParseChannel(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.Valid() {
		return "", fmt.Errorf("unknown channel %q (valid: linkedin, newsletter, blog)", s)
	}
	return ch, nil
}

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelLinkedIn, ChannelNewsletter, ChannelBlog:
		return true
	}
	return false
}

// DisplayName returns the human-readable channel name.
func (c Channel) DisplayName() string {
	switch c {
	case ChannelLinkedIn:
		return "LinkedIn"
	case ChannelNewsletter:
		return "Newsletter Email"
	case ChannelBlog:
		return "Blog Post"
	}
	return string(c)
}

// Category is the kind of a source document.
type Category string

const (
	CategoryProductRoadmap    Category = "product_roadmap"
	CategoryEngineeringTicket Category = "engineering_ticket"
	CategoryMeetingTranscript Category = "meeting_transcript"
	CategoryMarketingNotes    Category = "marketing_notes"
	CategoryCustomerFeedback  Category = "customer_feedback"
)

// AllCategories returns the document categories in prompt order.
func AllCategories() []Category {
	return []Category{
		CategoryProductRoadmap,
		CategoryEngineeringTicket,
		CategoryMeetingTranscript,
		CategoryMarketingNotes,
		CategoryCustomerFeedback,
	}
}

// Title returns the heading used when the category is rendered into a prompt.
func (c Category) Title() string {
	switch c {
	case CategoryProductRoadmap:
		return "Product Roadmap Summary"
	case CategoryEngineeringTicket:
		return "Engineering Ticket"
	case CategoryMeetingTranscript:
		return "Meeting Transcript"
	case CategoryMarketingNotes:
		return "Marketing & Product Meeting Notes"
	case CategoryCustomerFeedback:
		return "Customer Feedback Snippets"
	}
	return string(c)
}

// Documents maps a category to its (possibly concatenated) text.
// An absent key means no source file existed for that category.
type Documents map[Category]string

// Missing returns the categories with no document, in prompt order.
func (d Documents) Missing() []Category {
	var missing []Category
	for _, c := range AllCategories() {
		if strings.TrimSpace(d[c]) == "" {
			missing = append(missing, c)
		}
	}
	return missing
}

// Clone returns a copy that callers may not use to mutate d.
func (d Documents) Clone() Documents {
	out := make(Documents, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// TopicMeta records where a topic's documents were read from.
type TopicMeta struct {
	Folder           string     `json:"folder"`
	FileCount        int        `json:"file_count"`
	MissingDocuments []Category `json:"missing_documents"`
	ParsedAt         time.Time  `json:"parsed_at"`
}

// Topic is the unit of work: a named bundle of source documents.
type Topic struct {
	Name      string    `json:"topic"`
	Documents Documents `json:"documents"`
	Meta      TopicMeta `json:"metadata"`
}

// Example is a few-shot example of a finished piece of content.
type Example struct {
	Topic   string
	Content Content
}

// Feedback is the judge's qualitative breakdown.
type Feedback struct {
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

// Verdict is one judge evaluation of one piece of content.
type Verdict struct {
	Score          int            `json:"score"`
	Passes         bool           `json:"passes_quality"`
	Feedback       Feedback       `json:"feedback"`
	RedFlags       []string       `json:"red_flags"`
	CriteriaScores map[string]int `json:"criteria_scores,omitempty"`
}

// Validate checks that the verdict is in range.
func (v Verdict) Validate() error {
	if v.Score < 0 || v.Score > 10 {
		return fmt.Errorf("score must be between 0 and 10, got %d", v.Score)
	}
	return nil
}

// RefinementRecord is the verdict that triggered one refinement.
type RefinementRecord struct {
	Iteration int      `json:"iteration"`
	Score     int      `json:"score"`
	Feedback  Feedback `json:"feedback"`
}

// Stage names the step that produced an ErrorRecord.
type Stage string

const (
	StageGenerate  Stage = "generate"
	StageJudge     Stage = "judge"
	StageRefine    Stage = "refine"
	StageEngine    Stage = "engine"
	StageAggregate Stage = "aggregate"
	StagePersist   Stage = "persist"
	StageParse     Stage = "parse"
)

// ErrorRecord is one entry in a channel or run error log.
type ErrorRecord struct {
	Stage     Stage     `json:"stage"`
	Channel   Channel   `json:"channel,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewErrorRecord stamps an error record with the current time.
func NewErrorRecord(stage Stage, ch Channel, err error) ErrorRecord {
	return ErrorRecord{Stage: stage, Channel: ch, Message: err.Error(), Timestamp: time.Now().UTC()}
}

// TerminalState records how a channel's loop ended.
type TerminalState string

const (
	StateUnfinished TerminalState = "unfinished"
	StatePassed     TerminalState = "passed"
	StateExhausted  TerminalState = "exhausted"
	StateFailed     TerminalState = "failed"
)

// Metrics counts the cost of driving one channel.
type Metrics struct {
	TokensUsed     int           `json:"tokens_used"`
	APICalls       int           `json:"api_calls"`
	GenerationTime time.Duration `json:"generation_time"`
}
