package filter

import (
	"testing"

	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
	"github.com/stretchr/testify/assert"
)

func TestCriteria_Matches(t *testing.T) {
	run := &blackboard.Run{
		Topic:       "q3_launch",
		Status:      content.RunCompleted,
		Channels:    []content.Channel{content.ChannelLinkedIn, content.ChannelBlog},
		StartedAtMs: 5000,
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{name: "no filters", criteria: Criteria{}, want: true},
		{name: "since before start", criteria: Criteria{SinceTimestampMs: 4000}, want: true},
		{name: "since after start", criteria: Criteria{SinceTimestampMs: 6000}, want: false},
		{name: "until after start", criteria: Criteria{UntilTimestampMs: 6000}, want: true},
		{name: "until before start", criteria: Criteria{UntilTimestampMs: 4000}, want: false},
		{name: "topic glob matches", criteria: Criteria{TopicGlob: "q3_*"}, want: true},
		{name: "topic glob misses", criteria: Criteria{TopicGlob: "q4_*"}, want: false},
		{name: "bad glob never matches", criteria: Criteria{TopicGlob: "[q3"}, want: false},
		{name: "status matches", criteria: Criteria{Status: content.RunCompleted}, want: true},
		{name: "status differs", criteria: Criteria{Status: content.RunFailed}, want: false},
		{name: "channel included", criteria: Criteria{Channel: content.ChannelBlog}, want: true},
		{name: "channel missing", criteria: Criteria{Channel: content.ChannelNewsletter}, want: false},
		{
			name: "all criteria must hold",
			criteria: Criteria{
				SinceTimestampMs: 1000,
				TopicGlob:        "q3_launch",
				Status:           content.RunFailed,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(run))
		})
	}
}

func TestCriteria_HasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{SinceTimestampMs: 1}).HasFilters())
	assert.True(t, (&Criteria{TopicGlob: "*"}).HasFilters())
	assert.True(t, (&Criteria{Status: content.RunFailed}).HasFilters())
	assert.True(t, (&Criteria{Channel: content.ChannelBlog}).HasFilters())
}
