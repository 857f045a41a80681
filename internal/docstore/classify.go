package docstore

import (
	"strings"

	"github.com/dyluth/quill/pkg/content"
)

// categoryKeywords is checked in order: the first category with a matching
// keyword wins. Within a category longer phrases come first.
var categoryKeywords = []struct {
	category content.Category
	keywords []string
}{
	{content.CategoryMeetingTranscript, []string{"meeting transcript", "transcript"}},
	{content.CategoryMarketingNotes, []string{"marketing & product", "marketing notes", "marketing note", "product meeting"}},
	{content.CategoryProductRoadmap, []string{"product roadmap summary", "roadmap summary", "product roadmap", "roadmap"}},
	{content.CategoryEngineeringTicket, []string{"linear ticket", "engineering ticket", "linear", "ticket"}},
	{content.CategoryCustomerFeedback, []string{"customer feedback", "feedback snippet", "feedback"}},
}

// Classify maps a file name to its document category. A transcript of a
// product meeting is a transcript, not a roadmap.
func Classify(filename string) (content.Category, bool) {
	lower := strings.ToLower(filename)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category, true
			}
		}
	}
	return "", false
}
