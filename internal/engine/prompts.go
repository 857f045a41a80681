package engine

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/quill/pkg/content"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// channelGuidance is appended to every prompt for the channel.
var channelGuidance = map[content.Channel]string{
	content.ChannelLinkedIn: "LinkedIn post: open with a hook line, short paragraphs, 150-300 words, " +
		"3-5 hashtags without the # symbol.",
	content.ChannelNewsletter: "Newsletter email: subject line of 50-80 characters, a warm greeting, " +
		"scannable sections and one clear call to action.",
	content.ChannelBlog: "Blog post: SEO-friendly title of 50-80 characters, markdown headings, " +
		"800-1500 words, concrete examples from the documents.",
}

func loadPrompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		// Embedded at build time; a missing file is a programming error.
		panic(fmt.Sprintf("prompt %s not embedded: %v", name, err))
	}
	return string(data)
}

func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func fieldList(ch content.Channel) string {
	fields := content.SchemaFields(ch)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = strconv.Quote(f)
	}
	return strings.Join(quoted, ", ")
}

// FormatDocuments renders the documents in category order, skipping absent ones.
func FormatDocuments(docs content.Documents) string {
	var sections []string
	for _, cat := range content.AllCategories() {
		text := strings.TrimSpace(docs[cat])
		if text == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s\n", cat.Title(), text))
	}
	if len(sections) == 0 {
		return "No documents available."
	}
	return strings.Join(sections, "\n")
}

// FormatExamples renders few-shot examples for the generator prompt.
func FormatExamples(examples []content.Example) string {
	if len(examples) == 0 {
		return "No examples available."
	}

	var sb strings.Builder
	for i, ex := range examples {
		topic := ex.Topic
		if topic == "" {
			topic = "Unknown Topic"
		}
		fmt.Fprintf(&sb, "### Example %d: %s\n", i+1, topic)
		switch c := ex.Content.(type) {
		case *content.LinkedInPost:
			tags := make([]string, len(c.Hashtags))
			for j, h := range c.Hashtags {
				tags[j] = "#" + h
			}
			fmt.Fprintf(&sb, "```\n%s\n```\nHashtags: %s\n", c.Content, strings.Join(tags, ", "))
		case *content.NewsletterEmail:
			fmt.Fprintf(&sb, "Subject: %s\n```\n%s\n```\n", c.SubjectLine, c.Body)
		case *content.BlogPost:
			fmt.Fprintf(&sb, "Title: %s\n```\n%s\n```\n", c.Title, c.Content)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func bullets(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// prompts holds the rendered templates for one channel.
type prompts struct {
	channel   content.Channel
	threshold float64
	base      string
	generate  string
	judge     string
	refine    string
}

func newPrompts(ch content.Channel, threshold float64) *prompts {
	return &prompts{
		channel:   ch,
		threshold: threshold,
		base:      loadPrompt("base.txt"),
		generate:  loadPrompt("generate.txt"),
		judge:     loadPrompt("judge.txt"),
		refine:    loadPrompt("refine.txt"),
	}
}

func (p *prompts) common() map[string]string {
	return map[string]string{
		"CHANNEL_NAME":     p.channel.DisplayName(),
		"CHANNEL_GUIDANCE": channelGuidance[p.channel],
		"FIELDS":           fieldList(p.channel),
		"THRESHOLD":        strconv.FormatFloat(p.threshold, 'f', -1, 64),
	}
}

func (p *prompts) Generate(topic string, docs content.Documents, examples []content.Example) string {
	values := p.common()
	values["TOPIC"] = topic
	values["DOCUMENTS"] = FormatDocuments(docs)
	values["EXAMPLES"] = FormatExamples(examples)
	return fill(p.generate, values)
}

func (p *prompts) Judge(c content.Content) string {
	values := p.common()
	values["CONTENT"] = c.Render()
	return fill(p.judge, values)
}

func (p *prompts) Refine(c content.Content, v content.Verdict) string {
	criteria := "{}"
	if len(v.CriteriaScores) > 0 {
		if data, err := json.MarshalIndent(v.CriteriaScores, "", "  "); err == nil {
			criteria = string(data)
		}
	}

	passFail := "FAIL"
	if v.Passes {
		passFail = "PASS"
	}

	values := p.common()
	values["CONTENT"] = c.Render()
	values["SCORE"] = strconv.Itoa(v.Score)
	values["PASS_FAIL"] = passFail
	values["CRITERIA_SCORES"] = criteria
	values["STRENGTHS"] = bullets(v.Feedback.Strengths, "- None noted")
	values["WEAKNESSES"] = bullets(v.Feedback.Weaknesses, "- None noted")
	values["SUGGESTIONS"] = bullets(v.Feedback.Suggestions, "- None noted")
	values["RED_FLAGS"] = bullets(v.RedFlags, "None")
	return fill(p.refine, values)
}
