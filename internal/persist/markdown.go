package persist

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dyluth/quill/pkg/content"
	"github.com/yuin/goldmark"
)

// RenderMarkdown renders an artifact for human review: the content first,
// then the quality report.
func RenderMarkdown(a *Artifact) string {
	var b strings.Builder

	switch {
	case a.LinkedInPost != nil:
		fmt.Fprintf(&b, "# LinkedIn Post: %s\n\n", a.Topic)
		b.WriteString(a.LinkedInPost.Content)
		b.WriteString("\n\n")
		if len(a.LinkedInPost.Hashtags) > 0 {
			tags := make([]string, len(a.LinkedInPost.Hashtags))
			for i, t := range a.LinkedInPost.Hashtags {
				tags[i] = "#" + strings.TrimPrefix(t, "#")
			}
			fmt.Fprintf(&b, "**Hashtags:** %s\n\n", strings.Join(tags, " "))
		}
	case a.Newsletter != nil:
		fmt.Fprintf(&b, "# Newsletter: %s\n\n", a.Topic)
		fmt.Fprintf(&b, "**Subject:** %s\n\n", a.Newsletter.SubjectLine)
		b.WriteString(a.Newsletter.Body)
		b.WriteString("\n\n")
	case a.BlogPost != nil:
		fmt.Fprintf(&b, "# %s\n\n", a.BlogPost.Title)
		b.WriteString(a.BlogPost.Content)
		b.WriteString("\n\n")
	}

	m := a.Metadata
	b.WriteString("---\n\n## Quality Report\n\n")
	status := "Below threshold"
	if m.PassedQuality {
		status = "Passed"
	}
	fmt.Fprintf(&b, "- **Score:** %d/10 (%s)\n", m.FinalScore, status)
	fmt.Fprintf(&b, "- **Refinement iterations:** %d\n", m.RefinementIterations)
	fmt.Fprintf(&b, "- **Model:** %s\n", m.ModelUsed)
	fmt.Fprintf(&b, "- **Generated:** %s\n", m.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	writeList(&b, "Strengths", m.FinalFeedback.Strengths)
	writeList(&b, "Weaknesses", m.FinalFeedback.Weaknesses)
	writeList(&b, "Suggestions", m.FinalFeedback.Suggestions)

	if len(m.RefinementHistory) > 0 {
		b.WriteString("\n### Refinement History\n\n")
		for _, rec := range m.RefinementHistory {
			fmt.Fprintf(&b, "- Iteration %d: refined after scoring %d/10\n", rec.Iteration, rec.Score)
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// channelFileBase is the file name stem for a channel's artifacts.
func channelFileBase(ch content.Channel) string {
	return string(ch)
}
