package filter

import (
	"path/filepath"

	"github.com/dyluth/quill/pkg/blackboard"
	"github.com/dyluth/quill/pkg/content"
)

// Criteria defines filtering criteria for stored runs.
// All filters are ANDed together - a run must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64             // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64             // Unix timestamp in milliseconds, 0 = no filter
	TopicGlob        string            // Glob pattern for the topic folder, empty = no filter
	Status           content.RunStatus // Exact match on run status, empty = no filter
	Channel          content.Channel   // Run must include this channel, empty = no filter
}

// Matches returns true if the run matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(run *blackboard.Run) bool {
	if c.SinceTimestampMs > 0 && run.StartedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && run.StartedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.TopicGlob != "" {
		matched, err := filepath.Match(c.TopicGlob, run.Topic)
		if err != nil || !matched {
			return false
		}
	}

	if c.Status != "" && run.Status != c.Status {
		return false
	}

	if c.Channel != "" && !hasChannel(run.Channels, c.Channel) {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.TopicGlob != "" ||
		c.Status != "" ||
		c.Channel != ""
}

func hasChannel(channels []content.Channel, want content.Channel) bool {
	for _, ch := range channels {
		if ch == want {
			return true
		}
	}
	return false
}
