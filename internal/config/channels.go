package config

import (
	"fmt"

	"github.com/dyluth/quill/pkg/content"
)

// SelectChannels resolves which channels a run targets. An explicit channel
// wins; otherwise all enabled channels when all is set or the workflow asks
// for every channel; otherwise the default channel.
func (c *QuillConfig) SelectChannels(requested string, all bool) ([]content.Channel, error) {
	if requested != "" {
		ch, err := content.ParseChannel(requested)
		if err != nil {
			return nil, err
		}
		if !c.Channels.IsEnabled(ch) {
			return nil, fmt.Errorf("channel '%s' is not enabled in channels.enabled", ch)
		}
		return []content.Channel{ch}, nil
	}

	if all || c.Workflow.GenerateAllChannels {
		return append([]content.Channel(nil), c.Channels.Enabled...), nil
	}

	return []content.Channel{c.Channels.Default}, nil
}
